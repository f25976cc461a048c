package dispatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailhive/mailhive/internal/model"
)

func emailBatch(n int) []model.Email {
	batch := make([]model.Email, n)
	for i := range batch {
		batch[i] = model.Email{
			ID: int64(i + 1),
			To: []string{fmt.Sprintf("user%d@example.com", i+1)},
		}
	}
	return batch
}

func TestPlanExactPartition(t *testing.T) {
	batch := emailBatch(10)
	subs := Plan(batch, 3)
	require.Len(t, subs, 3)

	seen := map[int64]int{}
	for _, sub := range subs {
		for _, e := range sub {
			seen[e.ID]++
		}
	}
	require.Len(t, seen, 10, "every email in exactly one sub-batch")
	for id, n := range seen {
		assert.Equalf(t, 1, n, "email %d duplicated", id)
	}

	min, max := len(subs[0]), len(subs[0])
	for _, sub := range subs {
		if len(sub) < min {
			min = len(sub)
		}
		if len(sub) > max {
			max = len(sub)
		}
	}
	assert.LessOrEqual(t, max-min, 1, "sub-batch sizes differ by at most 1")
}

func TestPlanBoundedByRecipients(t *testing.T) {
	// 2 emails, 1 recipient each: no point in 8 sub-batches.
	subs := Plan(emailBatch(2), 8)
	assert.Len(t, subs, 2)
}

func TestPlanSingleWorker(t *testing.T) {
	subs := Plan(emailBatch(5), 1)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0], 5)
}

func TestPlanEmptyBatch(t *testing.T) {
	assert.Nil(t, Plan(nil, 4))
}

func TestPlanDeduplicatesRecipientsInBound(t *testing.T) {
	batch := []model.Email{{
		ID:  1,
		To:  []string{"a@x.com", "a@x.com"},
		Bcc: []string{"a@x.com"},
	}}
	// One distinct final recipient: a single sub-batch.
	subs := Plan(batch, 4)
	assert.Len(t, subs, 1)
}
