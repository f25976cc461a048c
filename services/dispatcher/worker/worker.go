package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mailhive/mailhive/internal/dispatch"
	"github.com/mailhive/mailhive/pkg/logx"
)

// Worker drives the run loop on a fixed interval, the periodic-job
// shape of the dispatcher process. Every tick tries the lease; losing
// it is a quiet no-op.
type Worker struct {
	Dispatcher *dispatch.Dispatcher
	Interval   time.Duration
}

func New(d *dispatch.Dispatcher, interval time.Duration) *Worker {
	return &Worker{Dispatcher: d, Interval: interval}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	logx.L().Infow("dispatcher_started", "interval", w.Interval.String())

	for {
		s, err := w.Dispatcher.Run(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			logx.L().Infow("dispatcher_stopping")
			return err
		case err != nil:
			logx.L().Errorw("dispatch_run_error", "error", err)
		case s.Attempted > 0:
			logx.L().Infow("dispatch_run_done",
				"attempted", s.Attempted, "sent", s.Sent,
				"failed", s.Failed, "requeued", s.Requeued)
		}

		select {
		case <-ctx.Done():
			logx.L().Infow("dispatcher_stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
