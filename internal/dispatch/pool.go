package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/pkg/logx"
)

type outcome struct {
	email *model.Email
	err   error
}

// accumulator is the only mutable state shared across sender
// goroutines. Append-only under the mutex; aggregation is commutative
// so collection order does not matter.
type accumulator struct {
	mu   sync.Mutex
	outs []outcome
}

func (a *accumulator) add(e *model.Email, err error) {
	a.mu.Lock()
	a.outs = append(a.outs, outcome{email: e, err: err})
	a.mu.Unlock()
}

func (a *accumulator) snapshot() []outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]outcome(nil), a.outs...)
}

// fanOut runs one goroutine per sub-batch, each with an inner bounded
// group of senders. The collect is bounded by BatchTimeout: on timeout
// the pool is abandoned, whatever the accumulator holds at that moment
// is the batch's result, and uncollected emails keep their queued or
// requeued status for the next loop iteration.
func (d *Dispatcher) fanOut(ctx context.Context, batch []model.Email) ([]outcome, bool) {
	subs := Plan(batch, d.Cfg.Workers)
	acc := &accumulator{}

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if len(subs) == 1 {
			d.runSubBatch(sendCtx, subs[0], acc)
			return
		}
		var g errgroup.Group
		for _, sub := range subs {
			sub := sub
			g.Go(func() error {
				d.runSubBatch(sendCtx, sub, acc)
				return nil
			})
		}
		_ = g.Wait()
	}()

	timedOut := false
	select {
	case <-done:
	case <-time.After(d.Cfg.BatchTimeout):
		timedOut = true
		cancel()
		logx.L().Warnw("dispatch_batch_timeout",
			"batch", len(batch),
			"collected", len(acc.snapshot()),
			"timeout", d.Cfg.BatchTimeout.String(),
		)
	case <-ctx.Done():
		cancel()
	}

	return acc.snapshot(), timedOut
}

// runSubBatch records the delivery trace for the whole sub-batch, then
// prepares every message up front so render and backend errors are
// captured per-email before any network-bound work, then sends through
// a bounded inner group. A failure on one email never aborts siblings.
func (d *Dispatcher) runSubBatch(ctx context.Context, sub []model.Email, acc *accumulator) {
	if err := d.Store.BulkInsertSentMessages(ctx, sub); err != nil {
		for i := range sub {
			acc.add(&sub[i], prepareError(err))
		}
		return
	}

	prepared := make([]*Prepared, len(sub))
	for i := range sub {
		p, err := d.Preparer.Prepare(&sub[i])
		if err != nil {
			acc.add(&sub[i], err)
			continue
		}
		prepared[i] = p
	}

	limit := d.Cfg.ThreadsPerWorker
	if limit > len(sub) {
		limit = len(sub)
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range sub {
		if prepared[i] == nil {
			continue
		}
		p := prepared[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				// Abandoned by the batch timeout; outcome stays uncollected.
				return nil
			}
			acc.add(p.Email, d.Sender.Send(p))
			return nil
		})
	}
	_ = g.Wait()
}
