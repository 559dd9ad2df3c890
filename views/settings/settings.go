package settings

import (
	"strings"

	"crowdfund-tui/config"
	"crowdfund-tui/helpers"
	"crowdfund-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for settings view
func Nav(width int, settingsMode string) string {
	var left string
	if settingsMode == "add" || settingsMode == "edit" {
		left = strings.Join([]string{
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("e") + " edit",
			styles.Key("d") + " delete",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the RPC settings view together with the contract and
// signer the session will use.
func Render(cfg config.Config, selectedIdx int, connected bool) string {
	h := styles.TitleStyle.Render("RPC Settings")
	lines := []string{h, ""}

	if len(cfg.RPCURLs) == 0 {
		lines = append(lines, styles.Muted("No RPC URLs configured."))
		lines = append(lines, "")
		lines = append(lines, styles.Muted("Press ")+styles.Key("a")+styles.Muted(" to add your first RPC URL."))
	} else {
		lines = append(lines, styles.Muted("Configured RPC Endpoints:"))
		lines = append(lines, "")

		for i, rpc := range cfg.RPCURLs {
			var marker string
			if rpc.Active {
				color := styles.CAccent
				if !connected {
					color = styles.CWarn
				}
				marker = lipgloss.NewStyle().Foreground(color).Render("● ")
			} else {
				marker = styles.Muted("○ ")
			}

			nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
			urlStyle := lipgloss.NewStyle().Foreground(styles.CMuted)

			if i == selectedIdx {
				nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
				urlStyle = urlStyle.Background(styles.CPanel)
				marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
			}

			lines = append(lines, marker+nameStyle.Render(rpc.Name))
			lines = append(lines, "  "+urlStyle.Render(rpc.URL))
			lines = append(lines, "")
		}
	}

	label := lipgloss.NewStyle().Foreground(styles.CMuted)
	value := lipgloss.NewStyle().Foreground(styles.CText)

	contract := cfg.Contract.Address
	if _, err := cfg.ValidateContract(); err != nil {
		contract = lipgloss.NewStyle().Foreground(styles.CWarn).Render("not set (CROWDFUND_CONTRACT_ADDRESS)")
	} else {
		contract = value.Render(helpers.ShortenAddr(contract))
	}
	abi := "bundled"
	if cfg.Contract.ABIPath != "" {
		abi = cfg.Contract.ABIPath
	}
	signer := cfg.Signer.Kind
	switch signer {
	case config.SignerClef:
		signer += " · " + cfg.Signer.ClefURL
	default:
		if cfg.Signer.KeystoreDir != "" {
			signer += " · " + cfg.Signer.KeystoreDir
		}
	}

	lines = append(lines,
		styles.Muted("Session:"),
		"",
		label.Render("Contract  ")+contract,
		label.Render("ABI       ")+value.Render(abi),
		label.Render("Signer    ")+value.Render(signer),
		"",
		styles.Muted("Activating an endpoint reconnects the wallet."),
	)

	return strings.Join(lines, "\n")
}
