package main

import (
	"fmt"
	"strings"
	"time"

	"crowdfund-tui/config"
	"crowdfund-tui/contract"
	"crowdfund-tui/helpers"
	"crowdfund-tui/rpc"
	"crowdfund-tui/styles"
	"crowdfund-tui/views/audit"
	"crowdfund-tui/views/campaigns"
	"crowdfund-tui/views/contributors"
	"crowdfund-tui/views/explorer"
	"crowdfund-tui/views/home"
	logview "crowdfund-tui/views/log"
	"crowdfund-tui/views/settings"
	"crowdfund-tui/wallet"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

func (m *model) renderRPCDeleteDialog() string {
	msg := helpers.FadeString("Are you sure you want to delete the RPC endpoint "+m.deleteRPCDialogName+"?", styles.FadePink, styles.FadeYellow)
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	var okButton, cancelButton string
	if m.deleteRPCDialogYesSelected {
		okButton = styles.ActiveButtonStyle.MarginRight(2).Render("Yes")
		cancelButton = styles.ButtonStyle.Render("No")
	} else {
		okButton = styles.ButtonStyle.MarginRight(2).Render("Yes")
		cancelButton = styles.ActiveButtonStyle.Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, buttons)

	dialog := styles.DialogBoxStyle.Padding(1, 0).Render(ui)

	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

// renderConfirmDialog shows the pending write over the current page
func (m *model) renderConfirmDialog() string {
	title := lipgloss.NewStyle().
		Foreground(cAccent2).
		Bold(true).
		Render("Confirm " + string(m.pending.op))

	body := m.confirmForm.View()
	if m.fundQR != "" {
		body += "\n" + m.fundQR + "\n" +
			styles.Muted("Or scan with a mobile wallet to fund directly")
	}

	help := lipgloss.NewStyle().
		Foreground(cMuted).
		MarginTop(1).
		Render("←/→: Choose • Enter: Confirm • Esc: Reject")

	ui := lipgloss.JoinVertical(lipgloss.Left, title, "", body, help)
	dialog := styles.DialogBoxStyle.Background(cPanel).Render(ui)

	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding

	// Connected account and balance
	var addrDisplay string
	switch s := m.session(); {
	case s != nil:
		bal := "…"
		if m.balance.EthWei != nil {
			bal = helpers.FormatETH(m.balance.EthWei)
		}
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render("Account: "+helpers.FadeString(helpers.ShortenAddr(s.Account.Hex()), styles.FadePink, styles.FadeYellow)) +
			lipgloss.NewStyle().Foreground(cText).Render("  "+bal)
	case m.lifecycle.State() == wallet.Connecting:
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render(m.spin.View() + " Connecting wallet...")
	default:
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Account: Not connected")
	}

	// RPC Status with green dot
	var statusIcon string
	var statusColor lipgloss.Color
	var statusText string

	if m.rpcURL == "" {
		statusIcon = "○"
		statusColor = styles.CError
		statusText = "No RPC"
	} else if m.rpcConnecting {
		statusIcon = "○"
		statusColor = styles.CError
		statusText = "Connecting..."
	} else if !m.rpcConnected {
		statusIcon = "○"
		statusColor = styles.CError
		statusText = "Connection Failed"
	} else {
		statusIcon = "●"
		statusColor = cAccent
		for _, r := range m.cfg.RPCURLs {
			if r.Active && r.URL == m.rpcURL {
				statusText = r.Name
				break
			}
		}
		if statusText == "" {
			statusText = "Connected"
		}
	}
	if net := m.currentNetwork(); net.Name != "" {
		statusText = net.Name + " · " + statusText
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	// Center title
	titleStyle := lipgloss.NewStyle().
		Foreground(cAccent).
		Bold(true)
	titleText := titleStyle.Render(helpers.FadeString("crowdfund", styles.FadeGreen, styles.FadeBlue))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)

	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		// Three-column layout: Account | Title (centered) | RPC
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		leftSpacer := strings.Repeat(" ", max(1, leftPadding))
		rightSpacer := strings.Repeat(" ", max(1, rightPadding))

		headerLine = addrDisplay + leftSpacer + titleText + rightSpacer + rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	out := headerLine + "\n" + separator
	if t := m.toastLine(); t != "" {
		out += "\n" + t
	}
	return out
}

// toastLine renders the current notification, or a pending transaction
func (m *model) toastLine() string {
	if m.toast != "" {
		var c lipgloss.Color
		var icon string
		switch m.toastKind {
		case toastSuccess:
			c, icon = cAccent, "✓ "
		case toastError:
			c, icon = styles.CError, "✗ "
		default:
			c, icon = cAccent2, "• "
		}
		return lipgloss.NewStyle().Foreground(c).Bold(true).Render(icon + m.toast)
	}
	if m.txPending {
		return m.spin.View() + " " + lipgloss.NewStyle().Foreground(cWarn).Render("Waiting for "+string(m.txOp)+"...")
	}
	return ""
}

func (m *model) renderCampaigns(now time.Time) (string, string) {
	connected := m.session() != nil
	nav := campaigns.Nav(m.w-2, connected)

	if !connected || len(m.snapshot.Campaigns) == 0 {
		content := campaigns.Empty(
			connected,
			m.lifecycle.State() == wallet.Connecting,
			m.syncing,
			m.loadErr,
			m.spin.View(),
		)
		return panelStyle.Width(max(0, m.w-2)).Render(content), nav
	}

	// Calculate panel widths (split 40/60)
	listWidth := max(0, (m.w*4)/10-2)
	detailsWidth := max(0, (m.w*6)/10-2)

	listContent := campaigns.Header(m.snapshot, m.syncing) + "\n\n" +
		campaigns.RenderList(m.views(now), m.selected, listWidth-4)
	if m.loadErr != "" {
		listContent += "\n\n" + lipgloss.NewStyle().Foreground(cWarn).Render("⚠ "+m.loadErr)
	}

	detailContent := ""
	if v, ok := m.selectedView(now); ok {
		detailContent = campaigns.RenderDetail(campaigns.DetailInput{
			View:            v,
			Now:             now,
			Network:         m.currentNetwork(),
			RefundSupported: m.refundSupported(),
			Width:           detailsWidth - 4,
		})
	}

	leftPanel := panelStyle.Width(listWidth).Render(listContent)
	rightPanel := panelStyle.Width(detailsWidth + 1).Render(detailContent)

	// Match panel heights
	height := max(lipgloss.Height(leftPanel), lipgloss.Height(rightPanel))
	leftPanel = panelStyle.Width(listWidth).Height(height - 2).Render(listContent)
	rightPanel = panelStyle.Width(detailsWidth + 1).Height(height - 2).Render(detailContent)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel), nav
}

func (m *model) formNav() string {
	left := strings.Join([]string{
		key("Tab") + " next field",
		key("Enter") + " next/submit",
		key("Esc") + " cancel",
	}, "   ")
	return navStyle.Width(m.w - 2).Render(left)
}

func (m *model) View() string {
	now := time.Now()

	// Render global header outside of page content
	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	var pageContent string
	var nav string

	switch m.activePage {
	case config.PageHome:
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(home.Render(m.form))
		nav = home.Nav(m.w - 2)

	case config.PageCampaigns:
		pageContent, nav = m.renderCampaigns(now)

	case config.PageCreate:
		content := styles.TitleStyle.Render("New Campaign") + "\n\n"
		if m.form != nil {
			content += m.form.View()
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = m.formNav()

	case config.PageFund:
		content := styles.TitleStyle.Render(fmt.Sprintf("Fund Campaign #%d", m.selectedID)) + "\n\n"
		if m.form != nil {
			content += m.form.View()
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = m.formNav()

	case config.PageContributors:
		content := contributors.Render(m.contribReport, m.contribID, m.contribLoading, m.contribErr, m.spin.View(), m.currentNetwork())
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = contributors.Nav(m.w - 2)

	case config.PageRefundAudit:
		content := audit.Render(m.auditReport, m.auditRunning, m.auditErr, m.spin.View())
		if m.session() != nil && !m.refundSupported() {
			content += "\n\n" + lipgloss.NewStyle().Foreground(cWarn).Render(
				contract.Message(contract.Classify(contract.OpRefund, contract.ErrFunctionUnavailable)))
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = audit.Nav(m.w - 2)

	case config.PageExplorer:
		links := m.explorerLinks()
		qr := ""
		if m.explorerIdx < len(links) && links[m.explorerIdx].URL != "" {
			qr = rpc.GenerateQRCode(links[m.explorerIdx].URL)
		}
		content := explorer.Render(links, m.explorerIdx, m.currentNetwork().Name, qr)
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = explorer.Nav(m.w - 2)

	case config.PageSettings:
		settingsContent := settings.Render(m.cfg, m.selectedRPCIdx, m.session() != nil)

		// Show form if in add/edit mode
		if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
			settingsContent = styles.TitleStyle.Render("RPC Settings") + "\n\n" + m.form.View()
		}

		pageContent = panelStyle.Width(max(0, m.w-2)).Render(settingsContent)
		nav = settings.Nav(m.w-2, m.settingsMode)

		if m.showRPCDeleteDialog {
			return m.renderRPCDeleteDialog()
		}
	}

	if m.confirmForm != nil && m.pending != nil {
		return m.renderConfirmDialog()
	}

	sections := []string{headerPanel, pageContent, nav}

	// Render log panel only if enabled
	if m.logEnabled {
		// Keep viewport height in sync with the rendered panel
		m.logViewport.Height = logview.PanelHeight(m.h)
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport, shortID(m.session())))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func key(s string) string {
	return hotkeyKeyStyle.Render(s)
}
