package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailhive/mailhive/internal/model"
)

// Ordering keys accepted for SENDING_ORDER. Anything else is ignored so
// config input never reaches the SQL text.
var orderColumns = map[string]string{
	"priority":       "CASE priority WHEN 'now' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END",
	"created_at":     "created_at",
	"scheduled_time": "COALESCE(scheduled_time, created_at)",
}

func orderClause(keys []string) string {
	cols := make([]string, 0, len(keys))
	for _, k := range keys {
		if col, ok := orderColumns[k]; ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		cols = []string{orderColumns["priority"], orderColumns["created_at"]}
	}
	return strings.Join(cols, ", ")
}

const emailColumns = `id, sender, to_addrs, cc_addrs, bcc_addrs, subject, text_body, html_body,
	       template_id, render_context, priority, status, scheduled_time, expires_at,
	       number_of_retries, message_id, backend_id, headers, campaign_id, user_id, created_at`

func scanEmail(row interface{ Scan(...any) error }) (model.Email, error) {
	var e model.Email
	var toRaw, ccRaw, bccRaw, renderRaw, headersRaw []byte
	err := row.Scan(&e.ID, &e.Sender, &toRaw, &ccRaw, &bccRaw, &e.Subject, &e.TextBody, &e.HTMLBody,
		&e.TemplateID, &renderRaw, &e.Priority, &e.Status, &e.ScheduledTime, &e.ExpiresAt,
		&e.Retries, &e.MessageID, &e.BackendID, &headersRaw, &e.CampaignID, &e.UserID, &e.CreatedAt)
	if err != nil {
		return model.Email{}, err
	}
	if err := scanJSON(toRaw, &e.To); err != nil {
		return model.Email{}, err
	}
	if err := scanJSON(ccRaw, &e.Cc); err != nil {
		return model.Email{}, err
	}
	if err := scanJSON(bccRaw, &e.Bcc); err != nil {
		return model.Email{}, err
	}
	if err := scanJSON(renderRaw, &e.RenderContext); err != nil {
		return model.Email{}, err
	}
	if err := scanJSON(headersRaw, &e.Headers); err != nil {
		return model.Email{}, err
	}
	return e, nil
}

// SelectEligible returns up to limit emails that may be sent at now:
// queued or requeued, past their scheduled_time (if any) and not yet
// expired. Templates, backends and attachments are prefetched so the
// dispatcher never goes back to the database per email. An empty result
// is the run loop's termination signal.
func (s *Store) SelectEligible(ctx context.Context, now time.Time, limit int, order []string) ([]model.Email, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM emails
		WHERE status IN ('queued','requeued')
		  AND (scheduled_time IS NULL OR scheduled_time <= $1)
		  AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY %s
		LIMIT $2
	`, emailColumns, orderClause(order))

	rows, err := s.DB.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []model.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	if err := s.prefetch(ctx, emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (s *Store) prefetch(ctx context.Context, emails []model.Email) error {
	emailIDs := make(int64Slice, 0, len(emails))
	var templateIDs, backendIDs int64Slice
	seenTpl := map[int64]struct{}{}
	seenBk := map[int64]struct{}{}
	for _, e := range emails {
		emailIDs = append(emailIDs, e.ID)
		if e.TemplateID != nil {
			if _, ok := seenTpl[*e.TemplateID]; !ok {
				seenTpl[*e.TemplateID] = struct{}{}
				templateIDs = append(templateIDs, *e.TemplateID)
			}
		}
		if _, ok := seenBk[e.BackendID]; !ok {
			seenBk[e.BackendID] = struct{}{}
			backendIDs = append(backendIDs, e.BackendID)
		}
	}

	templates := map[int64]*model.Template{}
	if len(templateIDs) > 0 {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT id, name, subject, text_body, html_body
			FROM templates WHERE id = ANY($1)
		`, templateIDs)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t model.Template
			if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.TextBody, &t.HTMLBody); err != nil {
				return err
			}
			templates[t.ID] = &t
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	backends := map[int64]*model.Backend{}
	if len(backendIDs) > 0 {
		rows, err := s.DB.QueryContext(ctx, `
			SELECT id, name, host, port, username, password_enc, tls, from_addr
			FROM backends WHERE id = ANY($1)
		`, backendIDs)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b model.Backend
			if err := rows.Scan(&b.ID, &b.Name, &b.Host, &b.Port, &b.Username, &b.EncryptedPassword, &b.TLS, &b.From); err != nil {
				return err
			}
			backends[b.ID] = &b
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	attachments := map[int64][]model.Attachment{}
	attRows, err := s.DB.QueryContext(ctx, `
		SELECT id, email_id, filename, content, content_type, headers
		FROM attachments WHERE email_id = ANY($1)
	`, emailIDs)
	if err != nil {
		return err
	}
	defer attRows.Close()
	for attRows.Next() {
		var a model.Attachment
		var headersRaw []byte
		if err := attRows.Scan(&a.ID, &a.EmailID, &a.Filename, &a.Content, &a.ContentType, &headersRaw); err != nil {
			return err
		}
		if err := scanJSON(headersRaw, &a.Headers); err != nil {
			return err
		}
		attachments[a.EmailID] = append(attachments[a.EmailID], a)
	}
	if err := attRows.Err(); err != nil {
		return err
	}

	for i := range emails {
		if emails[i].TemplateID != nil {
			emails[i].Template = templates[*emails[i].TemplateID]
		}
		emails[i].Backend = backends[emails[i].BackendID]
		emails[i].Attachments = attachments[emails[i].ID]
	}
	return nil
}

// BulkInsertSentMessages records one pending row per final recipient of
// every email, in a single statement. Runs before any send attempt so a
// trace survives a crash mid-send.
func (s *Store) BulkInsertSentMessages(ctx context.Context, emails []model.Email) error {
	var b strings.Builder
	var args []any
	b.WriteString(`INSERT INTO sent_messages (email_id, recipient, status) VALUES `)
	n := 0
	for _, e := range emails {
		for _, addr := range e.FinalRecipients() {
			if n > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "($%d,$%d,$%d)", 3*n+1, 3*n+2, 3*n+3)
			args = append(args, e.ID, addr, string(e.Status))
			n++
		}
	}
	if n == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, b.String(), args...)
	return err
}

func (s *Store) MarkEmailsSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE emails SET status='sent' WHERE id = ANY($1)
	`, int64Slice(ids))
	return err
}

// RequeueEmails bumps the retry counter and pushes scheduled_time to
// next in one statement; an unset counter counts as zero.
func (s *Store) RequeueEmails(ctx context.Context, ids []int64, next time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE emails
		   SET status='requeued',
		       number_of_retries = COALESCE(number_of_retries, 0) + 1,
		       scheduled_time = $2
		 WHERE id = ANY($1)
	`, int64Slice(ids), next)
	return err
}

func (s *Store) MarkEmailsFailed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE emails SET status='failed' WHERE id = ANY($1)
	`, int64Slice(ids))
	return err
}

func (s *Store) UpdateSentMessageStatus(ctx context.Context, emailIDs []int64, status model.EmailStatus) error {
	if len(emailIDs) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE sent_messages SET status=$2 WHERE email_id = ANY($1)
	`, int64Slice(emailIDs), string(status))
	return err
}

func (s *Store) InsertDeliveryLogs(ctx context.Context, logs []model.DeliveryLog) error {
	if len(logs) == 0 {
		return nil
	}
	var b strings.Builder
	var args []any
	b.WriteString(`INSERT INTO delivery_logs (email_id, status, message, exception_kind) VALUES `)
	for i, l := range logs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d)", 4*i+1, 4*i+2, 4*i+3, 4*i+4)
		args = append(args, l.EmailID, string(l.Status), l.Message, l.ExceptionKind)
	}
	_, err := s.DB.ExecContext(ctx, b.String(), args...)
	return err
}

func (s *Store) MarkCampaignsSending(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campaigns SET status='sending'
		 WHERE id = ANY($1) AND status IN ('created','started')
	`, int64Slice(ids))
	return err
}

// CompleteCampaigns moves sending campaigns to completed once none of
// their emails is still pending dispatch.
func (s *Store) CompleteCampaigns(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campaigns SET status='completed'
		 WHERE id = ANY($1) AND status='sending'
		   AND NOT EXISTS (
		       SELECT 1 FROM emails e
		        WHERE e.campaign_id = campaigns.id
		          AND e.status IN ('queued','requeued')
		   )
	`, int64Slice(ids))
	return err
}

func (s *Store) MarkCampaignsError(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campaigns SET status='error' WHERE id = ANY($1)
	`, int64Slice(ids))
	return err
}
