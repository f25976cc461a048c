package dispatch

import (
	"context"

	"github.com/mailhive/mailhive/internal/model"
)

// reconcile applies the per-email state machine over the collected
// outcomes and persists everything in bulk: one update per target
// status for emails, one per status for sent messages, one insert for
// delivery logs. The computed summary is returned even when
// persistence fails so the caller can still notify with the in-memory
// counts.
func (d *Dispatcher) reconcile(ctx context.Context, outs []outcome) (Summary, error) {
	now := d.Now()

	var sentIDs, requeueIDs, failedIDs []int64
	var logs []model.DeliveryLog
	for _, o := range outs {
		if o.err == nil {
			sentIDs = append(sentIDs, o.email.ID)
			if d.Cfg.DeliveryLogLevel >= 2 {
				logs = append(logs, model.DeliveryLog{
					EmailID: o.email.ID,
					Status:  model.EmailSent,
					Message: "delivered",
				})
			}
			continue
		}

		if o.email.RetryCount() < d.Cfg.MaxRetries {
			requeueIDs = append(requeueIDs, o.email.ID)
		} else {
			failedIDs = append(failedIDs, o.email.ID)
		}
		if d.Cfg.DeliveryLogLevel >= 1 {
			logs = append(logs, model.DeliveryLog{
				EmailID:       o.email.ID,
				Status:        model.EmailFailed,
				Message:       o.err.Error(),
				ExceptionKind: string(kindOf(o.err)),
			})
		}
	}

	summary := Summary{
		Attempted: len(outs),
		Sent:      len(sentIDs),
		Failed:    len(failedIDs),
		Requeued:  len(requeueIDs),
	}

	if err := d.Store.MarkEmailsSent(ctx, sentIDs); err != nil {
		return summary, err
	}
	if err := d.Store.RequeueEmails(ctx, requeueIDs, now.Add(d.Cfg.RetryDelay)); err != nil {
		return summary, err
	}
	if err := d.Store.MarkEmailsFailed(ctx, failedIDs); err != nil {
		return summary, err
	}
	if err := d.Store.UpdateSentMessageStatus(ctx, sentIDs, model.EmailSent); err != nil {
		return summary, err
	}
	if err := d.Store.UpdateSentMessageStatus(ctx, requeueIDs, model.EmailRequeued); err != nil {
		return summary, err
	}
	if err := d.Store.UpdateSentMessageStatus(ctx, failedIDs, model.EmailFailed); err != nil {
		return summary, err
	}
	if err := d.Store.InsertDeliveryLogs(ctx, logs); err != nil {
		return summary, err
	}
	return summary, nil
}
