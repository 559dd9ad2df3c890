package home

import (
	"strings"

	"crowdfund-tui/config"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/huh"
)

// TempSelection stores the menu selection
var TempSelection config.Page

// CreateForm creates the main menu form. Pages that need a wallet are
// only offered while connected.
func CreateForm(connected bool) *huh.Form {
	TempSelection = config.PageCampaigns

	opts := []huh.Option[config.Page]{
		huh.NewOption("Campaigns", config.PageCampaigns),
	}
	if connected {
		opts = append(opts,
			huh.NewOption("New Campaign", config.PageCreate),
			huh.NewOption("Refund Audit", config.PageRefundAudit),
			huh.NewOption("View on Blockchain", config.PageExplorer),
		)
	}
	opts = append(opts, huh.NewOption("RPC Settings", config.PageSettings))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[config.Page]().
				Options(opts...).
				Title("Main Menu").
				Description("Select a view to navigate to").
				Value(&TempSelection),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the home view
func Render(form *huh.Form) string {
	if form != nil {
		return form.View()
	}
	return "Loading menu..."
}

// Nav returns the navigation bar for home view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " go",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
