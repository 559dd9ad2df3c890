package explorer

import (
	"strings"

	"crowdfund-tui/helpers"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Link is one block-explorer target shown as a card.
type Link struct {
	Label string
	Icon  string
	Value string // address or tx hash
	URL   string // empty when the network has no explorer
}

// Nav returns the navigation bar for the explorer view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Tab") + " select next",
		styles.Key("y") + " copy URL",
		styles.Key("l") + " debug log",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

func cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(28).
		Height(6).
		Align(lipgloss.Center, lipgloss.Center).
		Background(styles.CPanel).
		Padding(1, 2).
		BorderStyle(lipgloss.HiddenBorder())
}

func cardFocusedStyle() lipgloss.Style {
	return cardStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("69"))
}

func renderCard(l Link, focused bool) string {
	icon := l.Icon
	if icon == "" {
		icon = "🔗"
	}
	name := lipgloss.NewStyle().
		Foreground(styles.CText).
		Bold(true).
		Align(lipgloss.Center).
		Render(l.Label)

	content := icon + "\n\n" + name + "\n" + helpers.FadeString(helpers.ShortenAddr(l.Value), styles.FadePink, styles.FadeYellow)

	if focused {
		return cardFocusedStyle().Render(content)
	}
	return cardStyle().Render(content)
}

// Render renders the link cards with the QR code and URL of the selected
// link beneath them.
func Render(links []Link, selectedIdx int, networkName string, qr string) string {
	h := styles.TitleStyle.Render("View on Blockchain")
	sub := styles.Muted(networkName)

	if len(links) == 0 {
		return h + "\n" + sub + "\n\n" + styles.Muted("Connect your wallet to see explorer links.")
	}

	var cards []string
	for i, l := range links {
		cards = append(cards, renderCard(l, i == selectedIdx))
		if i < len(links)-1 {
			cards = append(cards, "  ")
		}
	}
	grid := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	sel := links[helpers.Min(helpers.Max(0, selectedIdx), len(links)-1)]
	if sel.URL == "" {
		return h + "\n" + sub + "\n\n" + grid + "\n\n" +
			lipgloss.NewStyle().Foreground(styles.CWarn).Render("No block explorer for this network.") + "\n" +
			styles.Muted(sel.Value)
	}

	url := styles.Hyperlink(sel.URL, lipgloss.NewStyle().Foreground(styles.CAccent2).Underline(true).Render(sel.URL))
	return h + "\n" + sub + "\n\n" + grid + "\n\n" + qr + "\n" + url + "\n\n" +
		styles.Muted("Scan to open on your phone")
}
