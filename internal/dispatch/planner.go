package dispatch

import "github.com/mailhive/mailhive/internal/model"

// Plan partitions a batch into at most workers sub-batches by
// round-robin assignment: every email lands in exactly one sub-batch
// and sizes differ by at most one. The worker count is bounded by the
// total number of final recipients, so a tiny batch never pays for idle
// fan-out; one sub-batch means the caller runs it inline.
func Plan(batch []model.Email, workers int) [][]model.Email {
	if len(batch) == 0 {
		return nil
	}
	total := 0
	for i := range batch {
		total += len(batch[i].FinalRecipients())
	}
	p := workers
	if total < p {
		p = total
	}
	if p > len(batch) {
		p = len(batch)
	}
	if p < 1 {
		p = 1
	}

	subs := make([][]model.Email, p)
	for i, e := range batch {
		subs[i%p] = append(subs[i%p], e)
	}
	return subs
}
