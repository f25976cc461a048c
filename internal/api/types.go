package api

import "time"

type CreateEmailReq struct {
	Sender        string            `json:"sender"`
	To            []string          `json:"to"            binding:"required,min=1,dive,required"`
	Cc            []string          `json:"cc"`
	Bcc           []string          `json:"bcc"`
	Subject       string            `json:"subject"`
	TextBody      string            `json:"text_body"`
	HTMLBody      string            `json:"html_body"`
	TemplateID    *int64            `json:"template_id"`
	RenderContext map[string]string `json:"render_context"`
	Priority      string            `json:"priority"`
	ScheduledTime *time.Time        `json:"scheduled_time"`
	ExpiresAt     *time.Time        `json:"expires_at"`
	BackendID     int64             `json:"backend_id"    binding:"required"`
	Headers       map[string]string `json:"headers"`
	CampaignID    *int64            `json:"campaign_id"`
	UserID        int64             `json:"user_id"`
	Attachments   []AttachmentReq   `json:"attachments"`
}

type AttachmentReq struct {
	Filename    string `json:"filename"     binding:"required"`
	Content     []byte `json:"content"      binding:"required"`
	ContentType string `json:"content_type"`
}

type CreateEmailResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type EmailDetails struct {
	ID            int64             `json:"id"`
	Sender        string            `json:"sender"`
	To            []string          `json:"to"`
	Cc            []string          `json:"cc,omitempty"`
	Bcc           []string          `json:"bcc,omitempty"`
	Subject       string            `json:"subject"`
	Priority      string            `json:"priority"`
	Status        string            `json:"status"`
	ScheduledTime *time.Time        `json:"scheduled_time,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Retries       *int              `json:"number_of_retries,omitempty"`
	CampaignID    *int64            `json:"campaign_id,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type CreateCampaignReq struct {
	Name string `json:"name" binding:"required"`
}

type CreateCampaignResp struct {
	ID int64 `json:"id"`
}

type CampaignStatsBody struct {
	Total    int `json:"total"`
	Queued   int `json:"queued"`
	Requeued int `json:"requeued"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

type CampaignListItem struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Stats     CampaignStatsBody `json:"stats"`
}

type CampaignDetails struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Stats     CampaignStatsBody `json:"stats"`
}

type CreateBackendReq struct {
	Name     string `json:"name"     binding:"required"`
	Host     string `json:"host"     binding:"required"`
	Port     int    `json:"port"     binding:"required"`
	Username string `json:"username"`
	Password string `json:"password"`
	TLS      bool   `json:"tls"`
	From     string `json:"from"     binding:"required"`
}

type BackendItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	TLS      bool   `json:"tls"`
	From     string `json:"from"`
}

type CreateTemplateReq struct {
	Name     string `json:"name"    binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}

type TemplateItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}
