package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityNow    Priority = "now"
)

type EmailStatus string

const (
	EmailCreated  EmailStatus = "created"
	EmailQueued   EmailStatus = "queued"
	EmailRequeued EmailStatus = "requeued"
	EmailSent     EmailStatus = "sent"
	EmailFailed   EmailStatus = "failed"
)

type CampaignStatus string

const (
	CampaignCreated   CampaignStatus = "created"
	CampaignStarted   CampaignStatus = "started"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignStopped   CampaignStatus = "stopped"
	CampaignError     CampaignStatus = "error"
)

// Email is the root entity of the dispatch engine. SentMessage and
// DeliveryLog rows are owned by their Email; Campaign only aggregates.
type Email struct {
	ID            int64
	Sender        string
	To            []string
	Cc            []string
	Bcc           []string
	Subject       string
	TextBody      string
	HTMLBody      string
	TemplateID    *int64
	RenderContext map[string]string
	Priority      Priority
	Status        EmailStatus
	ScheduledTime *time.Time
	ExpiresAt     *time.Time
	Retries       *int
	MessageID     *string
	BackendID     int64
	Headers       map[string]string
	CampaignID    *int64
	UserID        int64
	CreatedAt     time.Time

	// Prefetched by the eligibility select.
	Template    *Template
	Attachments []Attachment
	Backend     *Backend
}

// FinalRecipients is the to+bcc union, deduplicated, order preserved.
// One SentMessage row is recorded per entry.
func (e *Email) FinalRecipients() []string {
	seen := make(map[string]struct{}, len(e.To)+len(e.Bcc))
	out := make([]string, 0, len(e.To)+len(e.Bcc))
	for _, addr := range append(append([]string{}, e.To...), e.Bcc...) {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// RetryCount treats an unset counter as zero.
func (e *Email) RetryCount() int {
	if e.Retries == nil {
		return 0
	}
	return *e.Retries
}

type SentMessage struct {
	ID        int64
	EmailID   int64
	Recipient string
	Status    EmailStatus
	CreatedAt time.Time
}

type DeliveryLog struct {
	EmailID       int64
	Status        EmailStatus
	Message       string
	ExceptionKind string
	CreatedAt     time.Time
}

type Campaign struct {
	ID        int64
	Name      string
	Status    CampaignStatus
	CreatedAt time.Time
}

// Backend holds the SMTP endpoint an Email is sent through. The
// password is encrypted at rest and only decrypted inside the preparer.
type Backend struct {
	ID                int64
	Name              string
	Host              string
	Port              int
	Username          string
	EncryptedPassword string
	TLS               bool
	From              string
}

type Template struct {
	ID       int64
	Name     string
	Subject  string
	TextBody string
	HTMLBody string
}

type Attachment struct {
	ID          int64
	EmailID     int64
	Filename    string
	Content     []byte
	ContentType string
	Headers     map[string]string
}
