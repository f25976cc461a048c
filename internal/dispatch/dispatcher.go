package dispatch

import (
	"context"
	"time"

	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/pkg/config"
)

// Store is the persistence surface the engine needs: one bulk read
// (eligibility) and bulk writes (recorder, reconciler, rollup). No
// row-level locking; correctness relies on status filtering plus the
// run-loop lease.
type Store interface {
	SelectEligible(ctx context.Context, now time.Time, limit int, order []string) ([]model.Email, error)
	BulkInsertSentMessages(ctx context.Context, emails []model.Email) error
	MarkEmailsSent(ctx context.Context, ids []int64) error
	RequeueEmails(ctx context.Context, ids []int64, next time.Time) error
	MarkEmailsFailed(ctx context.Context, ids []int64) error
	UpdateSentMessageStatus(ctx context.Context, emailIDs []int64, status model.EmailStatus) error
	InsertDeliveryLogs(ctx context.Context, logs []model.DeliveryLog) error
	MarkCampaignsSending(ctx context.Context, ids []int64) error
	CompleteCampaigns(ctx context.Context, ids []int64) error
	MarkCampaignsError(ctx context.Context, ids []int64) error
}

// Lock is the system-wide dispatch lease. TryAcquire must not block:
// (false, nil) means another dispatcher is draining the queue, which is
// a normal no-op.
type Lock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Notifier receives exactly one summary per dispatch step. Best-effort;
// a notify failure never fails the dispatch.
type Notifier interface {
	DispatchFinished(ctx context.Context, userID int64, s Summary) error
}

// Summary counts Emails, not recipient expansions: Sent is the number
// of emails whose dispatch succeeded.
type Summary struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Requeued  int `json:"requeued"`
}

func (s *Summary) add(o Summary) {
	s.Attempted += o.Attempted
	s.Sent += o.Sent
	s.Failed += o.Failed
	s.Requeued += o.Requeued
}

type Dispatcher struct {
	Store    Store
	Preparer *Preparer
	Sender   Sender
	Lock     Lock
	Notifier Notifier
	Cfg      config.DispatcherConfig

	// Now is swapped in tests.
	Now func() time.Time
}

func New(st Store, prep *Preparer, snd Sender, lock Lock, n Notifier, cfg config.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		Store:    st,
		Preparer: prep,
		Sender:   snd,
		Lock:     lock,
		Notifier: n,
		Cfg:      cfg,
		Now:      time.Now,
	}
}
