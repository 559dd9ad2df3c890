package audit

import (
	"fmt"
	"strings"

	"crowdfund-tui/campaign"
	"crowdfund-tui/helpers"
	"crowdfund-tui/styles"
	"crowdfund-tui/views/campaigns"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the refund audit view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("r") + " re-run",
		styles.Key("l") + " debug log",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the refund audit table.
func Render(report campaign.AuditReport, running bool, errMsg string, spinnerView string) string {
	h := styles.TitleStyle.Render("Refund Audit")
	sub := styles.Muted("Status and canRefund() for every campaign")

	if running {
		return h + "\n" + sub + "\n\n" + spinnerView + " Auditing campaigns…"
	}
	if errMsg != "" {
		return h + "\n" + sub + "\n\n" + lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ "+errMsg)
	}
	if len(report.Entries) == 0 {
		return h + "\n" + sub + "\n\n" + styles.Muted("No campaigns to audit.")
	}

	lines := []string{h, sub, ""}
	if !report.Supported {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CWarn).Render("Refund function not available. Please deploy updated contract."), "")
	}

	header := lipgloss.NewStyle().Foreground(styles.CMuted).Bold(true).
		Render(fmt.Sprintf("%-5s %-24s %-14s %8s  %s", "ID", "Title", "Status", "Progress", "canRefund"))
	lines = append(lines, header)

	refundable := 0
	for _, e := range report.Entries {
		if e.Err != nil && e.View.Campaign.ID == 0 {
			lines = append(lines, fmt.Sprintf("%-5d ", e.ID)+lipgloss.NewStyle().Foreground(styles.CError).Render("unreadable: "+e.Err.Error()))
			continue
		}
		v := e.View
		status := lipgloss.NewStyle().Foreground(campaigns.StatusColor(v.Status)).Render(fmt.Sprintf("%-14s", v.Status.String()))
		row := fmt.Sprintf("%-5d %-24s ", e.ID, helpers.Truncate(v.Campaign.Title, 24)) + status +
			fmt.Sprintf(" %7.2f%%  ", v.Progress) + canRefundCell(report.Supported, e)
		lines = append(lines, row)
		if e.CanRefund {
			refundable++
		}
	}

	lines = append(lines, "", styles.Muted(fmt.Sprintf("%d campaigns · %d refundable", len(report.Entries), refundable)))
	return strings.Join(lines, "\n")
}

func canRefundCell(supported bool, e campaign.AuditEntry) string {
	switch {
	case !supported:
		return styles.Muted("n/a")
	case !e.Checked:
		return lipgloss.NewStyle().Foreground(styles.CError).Render("error")
	case e.CanRefund:
		return lipgloss.NewStyle().Foreground(styles.CWarn).Bold(true).Render("yes")
	default:
		return styles.Muted("no")
	}
}
