package config

// Page identifies the view shown in the main panel.
type Page int

const (
	PageHome Page = iota
	PageCampaigns
	PageCreate
	PageFund
	PageContributors
	PageRefundAudit
	PageExplorer
	PageSettings
)

func (p Page) String() string {
	switch p {
	case PageHome:
		return "Main Menu"
	case PageCampaigns:
		return "Campaigns"
	case PageCreate:
		return "New Campaign"
	case PageFund:
		return "Fund Campaign"
	case PageContributors:
		return "Contributors"
	case PageRefundAudit:
		return "Refund Audit"
	case PageExplorer:
		return "Explorer"
	case PageSettings:
		return "RPC Settings"
	default:
		return "Unknown"
	}
}
