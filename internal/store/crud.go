package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mailhive/mailhive/internal/model"
)

var ErrScheduleAfterExpiry = errors.New("store: scheduled_time is after expires_at")

type CampaignStats struct {
	Total    int
	Queued   int
	Requeued int
	Sent     int
	Failed   int
}

// InsertEmail enforces the creation invariant scheduled_time <= expires_at.
func (s *Store) InsertEmail(ctx context.Context, tx *sql.Tx, e *model.Email) (int64, error) {
	if e.ScheduledTime != nil && e.ExpiresAt != nil && e.ScheduledTime.After(*e.ExpiresAt) {
		return 0, ErrScheduleAfterExpiry
	}
	toJSON, err := jsonVal(e.To)
	if err != nil {
		return 0, err
	}
	ccJSON, err := jsonVal(e.Cc)
	if err != nil {
		return 0, err
	}
	bccJSON, err := jsonVal(e.Bcc)
	if err != nil {
		return 0, err
	}
	renderJSON, err := jsonVal(e.RenderContext)
	if err != nil {
		return 0, err
	}
	headersJSON, err := jsonVal(e.Headers)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO emails (sender, to_addrs, cc_addrs, bcc_addrs, subject, text_body, html_body,
		                    template_id, render_context, priority, status, scheduled_time, expires_at,
		                    message_id, backend_id, headers, campaign_id, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18) RETURNING id
	`, e.Sender, toJSON, ccJSON, bccJSON, e.Subject, e.TextBody, e.HTMLBody,
		e.TemplateID, renderJSON, string(e.Priority), string(e.Status), e.ScheduledTime, e.ExpiresAt,
		e.MessageID, e.BackendID, headersJSON, e.CampaignID, e.UserID).Scan(&id)
	return id, err
}

func (s *Store) InsertAttachment(ctx context.Context, tx *sql.Tx, a *model.Attachment) (int64, error) {
	headersJSON, err := jsonVal(a.Headers)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO attachments (email_id, filename, content, content_type, headers)
		VALUES ($1,$2,$3,$4,$5) RETURNING id
	`, a.EmailID, a.Filename, a.Content, a.ContentType, headersJSON).Scan(&id)
	return id, err
}

func (s *Store) GetEmail(ctx context.Context, id int64) (model.Email, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+emailColumns+`
		FROM emails WHERE id = $1
	`, id)
	e, err := scanEmail(row)
	if err != nil {
		return model.Email{}, err
	}
	emails := []model.Email{e}
	if err := s.prefetch(ctx, emails); err != nil {
		return model.Email{}, err
	}
	return emails[0], nil
}

func (s *Store) InsertCampaign(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO campaigns (name, status)
		VALUES ($1,'created') RETURNING id
	`, name).Scan(&id)
	return id, err
}

func (s *Store) GetCampaign(ctx context.Context, id int64) (model.Campaign, error) {
	var c model.Campaign
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, status, created_at FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt)
	if err != nil {
		return model.Campaign{}, err
	}
	return c, nil
}

func (s *Store) GetCampaignStats(ctx context.Context, id int64) (CampaignStats, error) {
	var st CampaignStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*)                                    AS total,
		  COUNT(*) FILTER (WHERE status='queued')     AS queued,
		  COUNT(*) FILTER (WHERE status='requeued')   AS requeued,
		  COUNT(*) FILTER (WHERE status='sent')       AS sent,
		  COUNT(*) FILTER (WHERE status='failed')     AS failed
		FROM emails
		WHERE campaign_id = $1
	`, id).Scan(&st.Total, &st.Queued, &st.Requeued, &st.Sent, &st.Failed)
	if err != nil {
		return CampaignStats{}, err
	}
	return st, nil
}

func (s *Store) ListCampaigns(ctx context.Context, limit, offset int) ([]model.Campaign, []CampaignStats, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, status, created_at
		FROM campaigns
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var campaigns []model.Campaign
	var ids int64Slice
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt); err != nil {
			return nil, nil, err
		}
		campaigns = append(campaigns, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(campaigns) == 0 {
		return campaigns, []CampaignStats{}, nil
	}

	statRows, err := s.DB.QueryContext(ctx, `
		SELECT campaign_id,
		       COUNT(*)                                  AS total,
		       COUNT(*) FILTER (WHERE status='queued')   AS queued,
		       COUNT(*) FILTER (WHERE status='requeued') AS requeued,
		       COUNT(*) FILTER (WHERE status='sent')     AS sent,
		       COUNT(*) FILTER (WHERE status='failed')   AS failed
		FROM emails
		WHERE campaign_id = ANY($1)
		GROUP BY campaign_id
	`, ids)
	if err != nil {
		return nil, nil, err
	}
	defer statRows.Close()

	statsByID := make(map[int64]CampaignStats, len(ids))
	for statRows.Next() {
		var id int64
		var st CampaignStats
		if err := statRows.Scan(&id, &st.Total, &st.Queued, &st.Requeued, &st.Sent, &st.Failed); err != nil {
			return nil, nil, err
		}
		statsByID[id] = st
	}
	if err := statRows.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]CampaignStats, len(campaigns))
	for i, c := range campaigns {
		out[i] = statsByID[c.ID]
	}
	return campaigns, out, nil
}

func (s *Store) InsertBackend(ctx context.Context, b *model.Backend) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO backends (name, host, port, username, password_enc, tls, from_addr)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id
	`, b.Name, b.Host, b.Port, b.Username, b.EncryptedPassword, b.TLS, b.From).Scan(&id)
	return id, err
}

func (s *Store) ListBackends(ctx context.Context) ([]model.Backend, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, host, port, username, password_enc, tls, from_addr
		FROM backends ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Backend
	for rows.Next() {
		var b model.Backend
		if err := rows.Scan(&b.ID, &b.Name, &b.Host, &b.Port, &b.Username, &b.EncryptedPassword, &b.TLS, &b.From); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) InsertTemplate(ctx context.Context, t *model.Template) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO templates (name, subject, text_body, html_body)
		VALUES ($1,$2,$3,$4) RETURNING id
	`, t.Name, t.Subject, t.TextBody, t.HTMLBody).Scan(&id)
	return id, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, subject, text_body, html_body
		FROM templates ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.TextBody, &t.HTMLBody); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
