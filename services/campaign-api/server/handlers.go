package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mailhive/mailhive/internal/api"
	"github.com/mailhive/mailhive/internal/crypt"
	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/internal/store"
	"github.com/mailhive/mailhive/pkg/logx"
)

type storeAPI interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	InsertEmail(ctx context.Context, tx *sql.Tx, e *model.Email) (int64, error)
	InsertAttachment(ctx context.Context, tx *sql.Tx, a *model.Attachment) (int64, error)
	GetEmail(ctx context.Context, id int64) (model.Email, error)
	InsertCampaign(ctx context.Context, tx *sql.Tx, name string) (int64, error)
	GetCampaign(ctx context.Context, id int64) (model.Campaign, error)
	GetCampaignStats(ctx context.Context, id int64) (store.CampaignStats, error)
	ListCampaigns(ctx context.Context, limit, offset int) ([]model.Campaign, []store.CampaignStats, error)
	InsertBackend(ctx context.Context, b *model.Backend) (int64, error)
	ListBackends(ctx context.Context) ([]model.Backend, error)
	InsertTemplate(ctx context.Context, t *model.Template) (int64, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
}

type dispatcherAPI interface {
	SendNow(ctx context.Context, e *model.Email) error
}

type Handlers struct {
	Store    storeAPI
	Dispatch dispatcherAPI
	Key      []byte
}

func NewHandlers(s storeAPI, d dispatcherAPI, key []byte) *Handlers {
	return &Handlers{Store: s, Dispatch: d, Key: key}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func parsePriority(s string) (model.Priority, bool) {
	switch model.Priority(s) {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityNow:
		return model.Priority(s), true
	case "":
		return model.PriorityMedium, true
	}
	return "", false
}

// CreateEmail persists a composed email with status queued; priority
// "now" bypasses the queue and dispatches synchronously before the
// response is written.
func (h *Handlers) CreateEmail(c *gin.Context) {
	var req api.CreateEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priority, ok := parsePriority(req.Priority)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}
	if req.TemplateID == nil && req.Subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject or template_id required"})
		return
	}

	e := model.Email{
		Sender:        req.Sender,
		To:            req.To,
		Cc:            req.Cc,
		Bcc:           req.Bcc,
		Subject:       req.Subject,
		TextBody:      req.TextBody,
		HTMLBody:      req.HTMLBody,
		TemplateID:    req.TemplateID,
		RenderContext: req.RenderContext,
		Priority:      priority,
		Status:        model.EmailQueued,
		ScheduledTime: req.ScheduledTime,
		ExpiresAt:     req.ExpiresAt,
		BackendID:     req.BackendID,
		Headers:       req.Headers,
		CampaignID:    req.CampaignID,
		UserID:        req.UserID,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err := h.Store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := h.Store.InsertEmail(ctx, tx, &e)
		if err != nil {
			return err
		}
		e.ID = id
		for _, a := range req.Attachments {
			att := model.Attachment{
				EmailID:     id,
				Filename:    a.Filename,
				Content:     a.Content,
				ContentType: a.ContentType,
			}
			if _, err := h.Store.InsertAttachment(ctx, tx, &att); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrScheduleAfterExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logx.L().Errorw("email_insert_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insert error"})
		return
	}

	status := model.EmailQueued
	if priority == model.PriorityNow {
		full, err := h.Store.GetEmail(ctx, e.ID)
		if err != nil {
			logx.L().Errorw("email_reload_error", "id", e.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch error"})
			return
		}
		if err := h.Dispatch.SendNow(ctx, &full); err != nil {
			logx.L().Warnw("immediate_send_failed", "id", e.ID, "error", err)
			// The dispatcher has already applied the retry policy, so
			// the row may be requeued rather than failed. Report what
			// was persisted.
			status = model.EmailFailed
			if cur, err := h.Store.GetEmail(ctx, e.ID); err == nil {
				status = cur.Status
			}
		} else {
			status = model.EmailSent
		}
	}

	c.JSON(http.StatusOK, api.CreateEmailResp{ID: e.ID, Status: string(status)})
}

func (h *Handlers) GetEmail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	e, err := h.Store.GetEmail(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}

	c.JSON(http.StatusOK, api.EmailDetails{
		ID:            e.ID,
		Sender:        e.Sender,
		To:            e.To,
		Cc:            e.Cc,
		Bcc:           e.Bcc,
		Subject:       e.Subject,
		Priority:      string(e.Priority),
		Status:        string(e.Status),
		ScheduledTime: e.ScheduledTime,
		ExpiresAt:     e.ExpiresAt,
		Retries:       e.Retries,
		CampaignID:    e.CampaignID,
		Headers:       e.Headers,
		CreatedAt:     e.CreatedAt,
	})
}

func (h *Handlers) CreateCampaign(c *gin.Context) {
	var req api.CreateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var id int64
	err := h.Store.WithTx(ctx, func(tx *sql.Tx) error {
		var e error
		id, e = h.Store.InsertCampaign(ctx, tx, req.Name)
		return e
	})
	if err != nil {
		logx.L().Errorw("campaign_insert_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insert error"})
		return
	}

	c.JSON(http.StatusOK, api.CreateCampaignResp{ID: id})
}

func statsBody(st store.CampaignStats) api.CampaignStatsBody {
	return api.CampaignStatsBody{
		Total:    st.Total,
		Queued:   st.Queued,
		Requeued: st.Requeued,
		Sent:     st.Sent,
		Failed:   st.Failed,
	}
}

func (h *Handlers) ListCampaigns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, stats, err := h.Store.ListCampaigns(ctx, limit, offset)
	if err != nil {
		logx.L().Errorw("list_campaigns_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list error"})
		return
	}

	out := make([]api.CampaignListItem, 0, len(rows))
	for i, r := range rows {
		out = append(out, api.CampaignListItem{
			ID:        r.ID,
			Name:      r.Name,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt,
			Stats:     statsBody(stats[i]),
		})
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Store.GetCampaign(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	stats, err := h.Store.GetCampaignStats(ctx, id)
	if err != nil {
		logx.L().Errorw("get_campaign_stats_error", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats error"})
		return
	}

	c.JSON(http.StatusOK, api.CampaignDetails{
		ID:        camp.ID,
		Name:      camp.Name,
		Status:    string(camp.Status),
		CreatedAt: camp.CreatedAt,
		Stats:     statsBody(stats),
	})
}

// CreateBackend encrypts the SMTP password before it reaches the
// database; it is never returned by the API.
func (h *Handlers) CreateBackend(c *gin.Context) {
	var req api.CreateBackendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enc, err := crypt.Encrypt(h.Key, req.Password)
	if err != nil {
		logx.L().Errorw("backend_encrypt_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encrypt error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	b := model.Backend{
		Name:              req.Name,
		Host:              req.Host,
		Port:              req.Port,
		Username:          req.Username,
		EncryptedPassword: enc,
		TLS:               req.TLS,
		From:              req.From,
	}
	id, err := h.Store.InsertBackend(ctx, &b)
	if err != nil {
		logx.L().Errorw("backend_insert_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insert error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handlers) ListBackends(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	backends, err := h.Store.ListBackends(ctx)
	if err != nil {
		logx.L().Errorw("list_backends_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list error"})
		return
	}

	out := make([]api.BackendItem, 0, len(backends))
	for _, b := range backends {
		out = append(out, api.BackendItem{
			ID:       b.ID,
			Name:     b.Name,
			Host:     b.Host,
			Port:     b.Port,
			Username: b.Username,
			TLS:      b.TLS,
			From:     b.From,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req api.CreateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	t := model.Template{
		Name:     req.Name,
		Subject:  req.Subject,
		TextBody: req.TextBody,
		HTMLBody: req.HTMLBody,
	}
	id, err := h.Store.InsertTemplate(ctx, &t)
	if err != nil {
		logx.L().Errorw("template_insert_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insert error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handlers) ListTemplates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	templates, err := h.Store.ListTemplates(ctx)
	if err != nil {
		logx.L().Errorw("list_templates_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list error"})
		return
	}

	out := make([]api.TemplateItem, 0, len(templates))
	for _, t := range templates {
		out = append(out, api.TemplateItem{
			ID:       t.ID,
			Name:     t.Name,
			Subject:  t.Subject,
			TextBody: t.TextBody,
			HTMLBody: t.HTMLBody,
		})
	}
	c.JSON(http.StatusOK, out)
}
