package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// RefundChecker is the optional refund surface of the contract. Older
// deployments lack canRefund; Supports reports which methods exist.
type RefundChecker interface {
	Supports(method string) bool
	CanRefund(ctx context.Context, id uint64) (bool, error)
}

// AuditEntry is the refund picture of one campaign.
type AuditEntry struct {
	ID        uint64
	View      View
	Checked   bool // canRefund was available and answered
	CanRefund bool
	Err       error
}

// AuditReport is the outcome of a refund audit across all campaigns.
type AuditReport struct {
	Supported bool // contract exposes canRefund
	Entries   []AuditEntry
}

// AuditRefunds walks every campaign, derives its status and, when the
// contract supports it, asks canRefund. Per-campaign failures are recorded
// in the entry and do not stop the walk.
func AuditRefunds(ctx context.Context, r Reader, rc RefundChecker, now time.Time, viewer common.Address, logger *log.Logger) (AuditReport, error) {
	if logger == nil {
		logger = discardLogger()
	}
	if !readerReady(r) {
		return AuditReport{}, ErrGatewayUnavailable
	}
	count, err := r.CampaignCount(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("read campaign count: %w", err)
	}

	report := AuditReport{Supported: rc != nil && rc.Supports("canRefund")}
	if !report.Supported {
		logger.Warn("refund functions not available on this contract")
	}

	for id := uint64(1); id <= count; id++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := AuditEntry{ID: id}
		c, err := r.GetCampaign(ctx, id)
		if err != nil {
			logger.Error("audit: campaign unreadable", "id", id, "err", err)
			entry.Err = err
			report.Entries = append(report.Entries, entry)
			continue
		}
		entry.View = Derive(c, now, viewer)

		if report.Supported {
			ok, err := rc.CanRefund(ctx, id)
			if err != nil {
				logger.Error("audit: canRefund failed", "id", id, "err", err)
				entry.Err = err
			} else {
				entry.Checked = true
				entry.CanRefund = ok
			}
		}
		logger.Debug("audit", "id", id, "status", entry.View.Status, "canRefund", entry.CanRefund)
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}
