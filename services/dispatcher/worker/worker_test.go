package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mailhive/mailhive/internal/dispatch"
	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/pkg/config"
)

type idleStore struct {
	selects atomic.Int64
}

func (s *idleStore) SelectEligible(ctx context.Context, now time.Time, limit int, order []string) ([]model.Email, error) {
	s.selects.Add(1)
	return nil, nil
}

func (s *idleStore) BulkInsertSentMessages(ctx context.Context, emails []model.Email) error {
	return nil
}
func (s *idleStore) MarkEmailsSent(ctx context.Context, ids []int64) error { return nil }
func (s *idleStore) RequeueEmails(ctx context.Context, ids []int64, next time.Time) error {
	return nil
}
func (s *idleStore) MarkEmailsFailed(ctx context.Context, ids []int64) error { return nil }
func (s *idleStore) UpdateSentMessageStatus(ctx context.Context, emailIDs []int64, status model.EmailStatus) error {
	return nil
}
func (s *idleStore) InsertDeliveryLogs(ctx context.Context, logs []model.DeliveryLog) error {
	return nil
}
func (s *idleStore) MarkCampaignsSending(ctx context.Context, ids []int64) error { return nil }
func (s *idleStore) CompleteCampaigns(ctx context.Context, ids []int64) error    { return nil }
func (s *idleStore) MarkCampaignsError(ctx context.Context, ids []int64) error   { return nil }

type freeLock struct{}

func (freeLock) TryAcquire(ctx context.Context) (bool, error) { return true, nil }
func (freeLock) Release(ctx context.Context) error            { return nil }

func TestRunTicksUntilCanceled(t *testing.T) {
	st := &idleStore{}
	d := dispatch.New(st, &dispatch.Preparer{}, nil, freeLock{}, nil, config.DispatcherConfig{
		BatchSize: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(40*time.Millisecond, cancel)
	defer timer.Stop()

	err := New(d, 5*time.Millisecond).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if st.selects.Load() < 2 {
		t.Fatalf("expected repeated eligibility polls, got %d", st.selects.Load())
	}
}
