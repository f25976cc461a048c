package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mailhive/mailhive/pkg/metrics"
)

// Event is the notification payload fanned out to the initiating user,
// one per dispatch step.
type Event struct {
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Data        Summary `json:"data"`
}

type publisher interface {
	PublishJSON(ctx context.Context, body []byte) error
}

// RMQNotifier publishes dispatch summaries to the notification queue.
type RMQNotifier struct {
	Pub publisher
}

func NewRMQNotifier(pub publisher) *RMQNotifier { return &RMQNotifier{Pub: pub} }

func (n *RMQNotifier) DispatchFinished(ctx context.Context, userID int64, s Summary) error {
	ev := Event{
		UserID: userID,
		Title:  "Mail dispatch finished",
		Description: fmt.Sprintf("%d sent, %d failed, %d requeued of %d attempted",
			s.Sent, s.Failed, s.Requeued, s.Attempted),
		Type: "dispatch_summary",
		Data: s,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.Pub.PublishJSON(ctx, body); err != nil {
		return err
	}
	metrics.NotifyEventsPublished.Inc()
	return nil
}
