package dispatch

import (
	"context"

	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/pkg/logx"
)

func campaignIDs(batch []model.Email) []int64 {
	seen := map[int64]struct{}{}
	var ids []int64
	for i := range batch {
		c := batch[i].CampaignID
		if c == nil {
			continue
		}
		if _, ok := seen[*c]; ok {
			continue
		}
		seen[*c] = struct{}{}
		ids = append(ids, *c)
	}
	return ids
}

// rollup advances campaign aggregates touched by the batch. Campaign
// status is advisory: errors are logged and swallowed, email statuses
// already committed stay authoritative. When reconciliation itself
// failed the touched campaigns are flagged error instead.
func (d *Dispatcher) rollup(ctx context.Context, batch []model.Email, reconciled bool) {
	ids := campaignIDs(batch)
	if len(ids) == 0 {
		return
	}

	if !reconciled {
		if err := d.Store.MarkCampaignsError(ctx, ids); err != nil {
			logx.L().Warnw("campaign_error_flag_failed", "campaigns", len(ids), "error", err)
		}
		return
	}

	if err := d.Store.MarkCampaignsSending(ctx, ids); err != nil {
		logx.L().Warnw("campaign_sending_rollup_failed", "campaigns", len(ids), "error", err)
		return
	}
	if err := d.Store.CompleteCampaigns(ctx, ids); err != nil {
		logx.L().Warnw("campaign_complete_rollup_failed", "campaigns", len(ids), "error", err)
	}
}
