package contributors

import (
	"fmt"
	"strings"

	"crowdfund-tui/campaign"
	"crowdfund-tui/helpers"
	"crowdfund-tui/network"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the contributors popup
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("r") + " reload",
		styles.Key("l") + " debug log",
		styles.Key("Esc") + " close",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the contributor table for one campaign.
func Render(report campaign.Report, id uint64, loading bool, errMsg string, spinnerView string, net network.Network) string {
	h := styles.TitleStyle.Render(fmt.Sprintf("Contributors · Campaign #%d", id))

	if loading {
		return h + "\n\n" + spinnerView + " Reading Funded events…"
	}
	if errMsg != "" {
		return h + "\n\n" + lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ "+errMsg)
	}

	sub := styles.Muted(helpers.Truncate(report.Campaign.Title, 48))
	if len(report.Contributors) == 0 {
		return h + "\n" + sub + "\n\n" + styles.Muted("No contributions yet.")
	}

	addrStyle := lipgloss.NewStyle().Foreground(styles.CAccent2)
	amount := lipgloss.NewStyle().Foreground(styles.CText)

	header := lipgloss.NewStyle().Foreground(styles.CMuted).Bold(true).
		Render(fmt.Sprintf("%-14s  %18s  %18s  %s", "Address", "Total (ETH)", "Last (ETH)", "Txs"))
	lines := []string{h, sub, "", header}

	for _, c := range report.Contributors {
		short := helpers.ShortenAddr(c.Address.Hex())
		addr := styles.Hyperlink(net.AddressURL(c.Address.Hex()), addrStyle.Render(fmt.Sprintf("%-14s", short)))
		row := addr + "  " +
			amount.Render(fmt.Sprintf("%18s", helpers.FormatEther(c.Total))) + "  " +
			styles.Muted(fmt.Sprintf("%18s", helpers.FormatEther(c.Last))) + "  " +
			styles.Muted(fmt.Sprintf("%d", c.Events))
		lines = append(lines, row)
	}

	lines = append(lines, "", styles.Muted(fmt.Sprintf("%d contributors · %d Funded events", len(report.Contributors), report.Events)))
	return strings.Join(lines, "\n")
}
