package log

import (
	"fmt"

	"crowdfund-tui/helpers"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// PanelHeight is the viewport height used for a terminal of the given
// height: at most a third of the screen and never more than 15 lines.
func PanelHeight(height int) int {
	// header (3 lines), nav (1 line), title + borders (4 lines), margins (2 lines)
	const reservedHeight = 10
	availableHeight := helpers.Max(5, height-reservedHeight)
	return helpers.Min(availableHeight, helpers.Min(height/3, 15))
}

// Render renders the log panel. session is the short ID of the active
// wallet session, empty when disconnected.
func Render(width, height int, logReady bool, logSpinnerView string, vp viewport.Model, session string) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")
	if session != "" {
		title += lipgloss.NewStyle().Foreground(styles.CMuted).Render(" · session " + session)
	}

	logPanelHeight := PanelHeight(height)

	// Update viewport height dynamically
	vp.Height = logPanelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(logPanelHeight + 2) // +2 for title and spacing

	if !logReady {
		initMsg := "initializing...\n" + logSpinnerView
		return border.Render(title + "\n\n" + initMsg)
	}

	// Show scrollbar info if content is larger than viewport
	scrollInfo := ""
	if vp.TotalLineCount() > 0 {
		scrollPercent := int(vp.ScrollPercent() * 100)
		if vp.TotalLineCount() > vp.Height {
			scrollInfo = lipgloss.NewStyle().
				Foreground(styles.CMuted).
				Render(fmt.Sprintf(" [%d%%]", scrollPercent))
		}
	}

	titleWithScroll := title + scrollInfo

	return border.Render(titleWithScroll + "\n\n" + vp.View())
}
