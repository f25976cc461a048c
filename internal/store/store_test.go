package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mailhive/mailhive/internal/model"
)

var emailCols = []string{
	"id", "sender", "to_addrs", "cc_addrs", "bcc_addrs", "subject", "text_body", "html_body",
	"template_id", "render_context", "priority", "status", "scheduled_time", "expires_at",
	"number_of_retries", "message_id", "backend_id", "headers", "campaign_id", "user_id", "created_at",
}

func eligibleRow(rows *sqlmock.Rows, id int64, to string) *sqlmock.Rows {
	return rows.AddRow(
		id, "noreply@example.com", []byte(`["`+to+`"]`), nil, nil, "subj", "body", "",
		nil, nil, "medium", "queued", nil, nil,
		nil, nil, int64(1), nil, nil, int64(7), time.Unix(0, 0).UTC(),
	)
}

func TestSelectEligible(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`(scheduled_time IS NULL OR scheduled_time <= $1)`)).
		WithArgs(now, 50).
		WillReturnRows(eligibleRow(eligibleRow(sqlmock.NewRows(emailCols), 1, "a@x.com"), 2, "b@x.com"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM backends WHERE id = ANY($1)`)).
		WithArgs("{1}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "host", "port", "username", "password_enc", "tls", "from_addr"}).
			AddRow(int64(1), "primary", "smtp.example.com", 587, "mailer", "enc", false, "noreply@example.com"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM attachments WHERE email_id = ANY($1)`)).
		WithArgs("{1,2}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email_id", "filename", "content", "content_type", "headers"}))

	emails, err := s.SelectEligible(context.Background(), now, 50, []string{"priority", "created_at"})
	if err != nil {
		t.Fatal(err)
	}
	if len(emails) != 2 {
		t.Fatalf("want 2 emails, got %d", len(emails))
	}
	if emails[0].To[0] != "a@x.com" {
		t.Fatalf("unexpected recipient %q", emails[0].To[0])
	}
	if emails[0].Backend == nil || emails[0].Backend.Host != "smtp.example.com" {
		t.Fatal("backend not prefetched")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSelectEligibleEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status IN ('queued','requeued')`)).
		WillReturnRows(sqlmock.NewRows(emailCols))

	emails, err := New(db).SelectEligible(context.Background(), time.Now(), 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(emails) != 0 {
		t.Fatalf("want empty result, got %d", len(emails))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOrderClauseWhitelist(t *testing.T) {
	got := orderClause([]string{"priority; DROP TABLE emails", "created_at"})
	if got != "created_at" {
		t.Fatalf("unknown keys must be dropped, got %q", got)
	}
	if def := orderClause(nil); def == "" {
		t.Fatal("default ordering is empty")
	}
}

func TestBulkInsertSentMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sent_messages (email_id, recipient, status) VALUES ($1,$2,$3),($4,$5,$6),($7,$8,$9)`)).
		WithArgs(int64(1), "a@x.com", "queued", int64(1), "b@x.com", "queued", int64(2), "c@x.com", "queued").
		WillReturnResult(sqlmock.NewResult(0, 3))

	emails := []model.Email{
		{ID: 1, To: []string{"a@x.com"}, Bcc: []string{"b@x.com", "a@x.com"}, Status: model.EmailQueued},
		{ID: 2, To: []string{"c@x.com"}, Status: model.EmailQueued},
	}
	if err := New(db).BulkInsertSentMessages(context.Background(), emails); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRequeueEmailsBulk(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	next := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`number_of_retries = COALESCE(number_of_retries, 0) + 1`)).
		WithArgs("{1,2}", next).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := New(db).RequeueEmails(context.Background(), []int64{1, 2}, next); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMarkEmailsSentNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Empty id set must not hit the database at all.
	if err := New(db).MarkEmailsSent(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateSentMessageStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sent_messages SET status=$2 WHERE email_id = ANY($1)`)).
		WithArgs("{5,6}", "sent").
		WillReturnResult(sqlmock.NewResult(0, 4))

	if err := New(db).UpdateSentMessageStatus(context.Background(), []int64{5, 6}, model.EmailSent); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertEmailScheduleInvariant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sched := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	expires := sched.Add(-time.Hour)
	e := &model.Email{
		To:            []string{"a@x.com"},
		Status:        model.EmailQueued,
		ScheduledTime: &sched,
		ExpiresAt:     &expires,
	}
	s := New(db)
	err = s.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, insErr := s.InsertEmail(context.Background(), tx, e)
		return insErr
	})
	if err != ErrScheduleAfterExpiry {
		t.Fatalf("want ErrScheduleAfterExpiry, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCompleteCampaignsGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`AND e.status IN ('queued','requeued')`)).
		WithArgs("{11}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(db).CompleteCampaigns(context.Background(), []int64{11}); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
