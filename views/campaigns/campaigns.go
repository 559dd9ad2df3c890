package campaigns

import (
	"fmt"
	"strings"
	"time"

	"crowdfund-tui/campaign"
	"crowdfund-tui/helpers"
	"crowdfund-tui/network"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the campaigns view
func Nav(width int, connected bool) string {
	var left string
	if !connected {
		left = strings.Join([]string{
			styles.Key("c") + " connect wallet",
			styles.Key("s") + " settings",
			styles.Key("h") + " menu",
			styles.Key("l") + " debug log",
			styles.Key("q") + " quit",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("n") + " new",
			styles.Key("f") + " fund",
			styles.Key("w") + " withdraw",
			styles.Key("x") + " refunds",
			styles.Key("v") + " contributors",
			styles.Key("y") + " copy owner",
			styles.Key("e") + " explorer",
			styles.Key("t") + " audit",
			styles.Key("r") + " refresh",
			styles.Key("c") + " disconnect",
			styles.Key("l") + " log",
			styles.Key("q") + " quit",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// StatusColor is the badge color for a status.
func StatusColor(s campaign.Status) lipgloss.Color {
	switch s {
	case campaign.StatusActive:
		return styles.CAccent
	case campaign.StatusGoalReached:
		return styles.CAccent2
	case campaign.StatusRefundEligible:
		return styles.CWarn
	case campaign.StatusCompleted:
		return styles.CBorder
	default:
		return styles.CMuted
	}
}

// StatusBadge renders the status label as a colored pill.
func StatusBadge(s campaign.Status) string {
	return lipgloss.NewStyle().
		Foreground(styles.CBg).
		Background(StatusColor(s)).
		Bold(true).
		Padding(0, 1).
		Render(s.String())
}

// ProgressBar renders pct (0-100) as a gradient bar followed by the
// percentage with two decimals.
func ProgressBar(pct float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(pct / 100 * float64(width))
	if pct > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	bar := helpers.FadeString(strings.Repeat("█", filled), styles.FadePink, styles.FadeYellow) +
		lipgloss.NewStyle().Foreground(styles.CBorder).Render(strings.Repeat("░", width-filled))
	return bar + " " + lipgloss.NewStyle().Foreground(styles.CText).Render(fmt.Sprintf("%.2f%%", pct))
}

// RenderList renders the campaign list
func RenderList(items []campaign.View, selectedIdx int, width int) string {
	nameWidth := helpers.Max(10, width-22)
	var listItems []string

	for i, v := range items {
		c := v.Campaign
		name := helpers.Truncate(c.Title, nameWidth)

		var marker, title string
		if i == selectedIdx {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
			title = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render(fmt.Sprintf("#%d %s", c.ID, name))
		} else {
			marker = "  "
			title = lipgloss.NewStyle().Foreground(lipgloss.Color("#e1a2aa")).Render(fmt.Sprintf("#%d ", c.ID)) +
				helpers.FadeString(name, "#7D5AFC", "#FF87D7")
		}

		status := lipgloss.NewStyle().Foreground(StatusColor(v.Status)).Render("● " + v.Status.String())
		raised := styles.Muted(fmt.Sprintf("%s / %s ETH", helpers.FormatEther(c.FundsRaised), helpers.FormatEther(c.Goal)))
		owner := ""
		if v.IsOwner {
			owner = " " + lipgloss.NewStyle().Foreground(styles.CPink).Render("★")
		}

		listItems = append(listItems, marker+title+owner+"\n  "+status+"  "+raised)
	}

	return strings.Join(listItems, "\n\n")
}

// DetailInput is what RenderDetail needs beyond the derived view.
type DetailInput struct {
	View            campaign.View
	Now             time.Time
	Network         network.Network
	RefundSupported bool
	Width           int
}

// RenderDetail renders the selected campaign
func RenderDetail(in DetailInput) string {
	v := in.View
	c := v.Campaign
	label := lipgloss.NewStyle().Foreground(styles.CMuted)
	value := lipgloss.NewStyle().Foreground(styles.CText)

	h := styles.TitleStyle.Render(fmt.Sprintf("#%d %s", c.ID, c.Title)) + "  " + StatusBadge(v.Status)

	desc := lipgloss.NewStyle().
		Foreground(styles.CText).
		Width(helpers.Max(20, in.Width)).
		Render(c.Description)

	// Owner links to the block explorer when the network has one.
	ownerStyle := lipgloss.NewStyle().Foreground(styles.CMuted).Underline(true)
	owner := styles.Hyperlink(in.Network.AddressURL(c.Owner.Hex()), ownerStyle.Render(c.Owner.Hex()))
	if v.IsOwner {
		owner += "  " + lipgloss.NewStyle().Foreground(styles.CPink).Italic(true).Render("(you)")
	}

	deadline := c.Deadline.Local().Format("2006-01-02 15:04")
	countdown := helpers.Countdown(c.Deadline, in.Now)

	lines := []string{
		h,
		"",
		desc,
		"",
		label.Render("Owner     ") + owner,
		label.Render("Goal      ") + value.Render(helpers.FormatETH(c.Goal)),
		label.Render("Raised    ") + value.Render(helpers.FormatETH(c.FundsRaised)),
		label.Render("Deadline  ") + value.Render(deadline) + "  " + label.Render("("+countdown+")"),
		"",
		ProgressBar(v.Progress, helpers.Max(10, helpers.Min(40, in.Width-12))),
		"",
	}

	lines = append(lines, renderActions(v, in.RefundSupported)...)
	return strings.Join(lines, "\n")
}

func renderActions(v campaign.View, refundSupported bool) []string {
	var hints []string
	if v.Actions.Fund {
		hints = append(hints, styles.Key("f")+" fund this campaign")
	}
	if v.Actions.Withdraw {
		hints = append(hints, styles.Key("w")+" withdraw funds")
	}
	if v.Actions.Refund {
		if refundSupported {
			hints = append(hints, styles.Key("x")+" process refunds")
		} else {
			hints = append(hints, lipgloss.NewStyle().Foreground(styles.CWarn).Render("Refunds need an updated contract"))
		}
	}
	if len(hints) == 0 {
		switch {
		case v.Status == campaign.StatusCompleted:
			hints = append(hints, styles.Muted("Funds have been withdrawn or refunded."))
		case v.GoalMet && !v.IsOwner:
			hints = append(hints, styles.Muted("Goal reached. Only the owner can withdraw."))
		default:
			hints = append(hints, styles.Muted("No actions available."))
		}
	}
	return hints
}

// Empty renders the message shown instead of the list.
func Empty(connected, connecting, syncing bool, errMsg, spinnerView string) string {
	h := styles.TitleStyle.Render("Campaigns")
	switch {
	case connecting:
		return h + "\n\n" + spinnerView + " Connecting wallet..."
	case !connected:
		return h + "\n\n" + styles.Muted("Connect your wallet to view campaigns.") + "\n\n" +
			styles.Muted("Press ") + styles.Key("c") + styles.Muted(" to connect.")
	case syncing:
		return h + "\n\n" + spinnerView + " Loading campaigns..."
	case errMsg != "":
		return h + "\n\n" + lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ "+errMsg) + "\n\n" +
			styles.Muted("Press ") + styles.Key("r") + styles.Muted(" to retry.")
	default:
		return h + "\n\n" + styles.Muted("No campaigns yet.") + "\n\n" +
			styles.Muted("Press ") + styles.Key("n") + styles.Muted(" to create the first one.")
	}
}

// Header renders the list title with the refresh summary.
func Header(snap campaign.Snapshot, syncing bool) string {
	h := styles.TitleStyle.Render("Campaigns")
	summary := fmt.Sprintf("%d campaigns · loaded %s", snap.Count, helpers.LoadedAt(snap.LoadedAt, syncing))
	out := h + "\n" + styles.Muted(summary)
	if snap.Partial() {
		out += "\n" + lipgloss.NewStyle().Foreground(styles.CWarn).Render(fmt.Sprintf("⚠ %d could not be loaded", len(snap.Skipped)))
	}
	return out
}
