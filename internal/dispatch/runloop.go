package dispatch

import (
	"context"
	"time"

	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/pkg/logx"
	"github.com/mailhive/mailhive/pkg/metrics"
)

// Run drains the eligible queue, serialized system-wide by the lease.
// Losing the lease race returns a zero summary and no error: another
// dispatcher is already at work. The lease is released on every exit
// path; batch errors propagate after the release.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	ok, err := d.Lock.TryAcquire(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		metrics.DispatchLockContended.Inc()
		logx.L().Infow("dispatch_lock_busy", "key", d.Cfg.LockKey)
		return Summary{}, nil
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Lock.Release(relCtx); err != nil {
			logx.L().Warnw("dispatch_lock_release_error", "key", d.Cfg.LockKey, "error", err)
		}
	}()

	var total Summary
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := d.Store.SelectEligible(ctx, d.Now(), d.Cfg.BatchSize, d.Cfg.SendingOrder)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}
		s, err := d.DispatchBatch(ctx, batch)
		total.add(s)
		if err != nil {
			return total, err
		}
	}
}

// DispatchBatch runs one batch end to end: fan-out, reconcile, rollup,
// notify. The notifier always sees the in-memory counts, even when
// persistence failed; the error surfaces to the caller afterwards.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch []model.Email) (Summary, error) {
	start := time.Now()
	metrics.DispatchBatchesTotal.Inc()

	outs, timedOut := d.fanOut(ctx, batch)
	summary, recErr := d.reconcile(ctx, outs)
	d.rollup(ctx, batch, recErr == nil)

	if len(batch) > 0 {
		if err := d.Notifier.DispatchFinished(ctx, batch[0].UserID, summary); err != nil {
			logx.L().Warnw("dispatch_notify_error", "error", err)
		}
	}

	metrics.DispatchEmailsSent.Add(float64(summary.Sent))
	metrics.DispatchEmailsFailed.Add(float64(summary.Failed))
	metrics.DispatchEmailsRequeued.Add(float64(summary.Requeued))
	metrics.DispatchBatchDuration.Observe(time.Since(start).Seconds())

	logx.L().Infow("dispatch_batch_done",
		"batch", len(batch),
		"attempted", summary.Attempted,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"requeued", summary.Requeued,
		"timed_out", timedOut,
		"duration", time.Since(start).Seconds(),
	)

	if recErr != nil {
		logx.L().Errorw("dispatch_reconcile_error", "error", recErr)
		return summary, recErr
	}
	return summary, nil
}

// SendNow dispatches a single email synchronously, bypassing the
// queue. Used by the composition API for priority "now".
func (d *Dispatcher) SendNow(ctx context.Context, e *model.Email) error {
	if err := d.Store.BulkInsertSentMessages(ctx, []model.Email{*e}); err != nil {
		return err
	}

	var sendErr error
	p, err := d.Preparer.Prepare(e)
	if err != nil {
		sendErr = err
	} else {
		sendErr = d.Sender.Send(p)
	}

	if _, err := d.reconcile(ctx, []outcome{{email: e, err: sendErr}}); err != nil {
		return err
	}
	d.rollup(ctx, []model.Email{*e}, true)
	return sendErr
}
