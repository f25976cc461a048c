package dispatch

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/internal/render"
)

func testPreparer() *Preparer {
	return &Preparer{
		Renderer:         render.TemplateRenderer{},
		Key:              testKey,
		MessageIDEnabled: true,
		MessageIDDomain:  "test.local",
	}
}

func renderedMessage(t *testing.T, p *Prepared) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := p.Msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestPrepareLiteralContent(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	e.Cc = []string{"cc@x.com"}

	p, err := testPreparer().Prepare(e)
	require.NoError(t, err)

	raw := renderedMessage(t, p)
	assert.Contains(t, raw, "To: a@x.com")
	assert.Contains(t, raw, "Cc: cc@x.com")
	assert.Contains(t, raw, "Subject: hello")
	assert.Contains(t, raw, "hi there")
	assert.Contains(t, raw, "Message-ID: <")
	assert.Contains(t, raw, "@test.local>")

	assert.Equal(t, "smtp.example.com", p.Dialer.Host)
	assert.Equal(t, 587, p.Dialer.Port)
	assert.Equal(t, "hunter2", p.Dialer.Password, "password decrypted for the dialer only")
}

func TestPrepareTemplateRendering(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	tplID := int64(3)
	e.TemplateID = &tplID
	e.Template = &model.Template{
		ID:       3,
		Name:     "welcome",
		Subject:  "Welcome {{.name}}",
		TextBody: "Hello {{.name}}, glad to have you.",
	}
	e.RenderContext = map[string]string{"name": "Ada"}

	p, err := testPreparer().Prepare(e)
	require.NoError(t, err)

	raw := renderedMessage(t, p)
	assert.Contains(t, raw, "Subject: Welcome Ada")
	assert.Contains(t, raw, "Hello Ada, glad to have you.")
}

func TestPrepareOverrideRecipients(t *testing.T) {
	e := queuedEmail(t, 1, []string{"real@customer.com"})
	e.Cc = []string{"boss@customer.com"}
	e.Bcc = []string{"archive@customer.com"}

	prep := testPreparer()
	prep.Override = []string{"staging@mailhive.local"}

	p, err := prep.Prepare(e)
	require.NoError(t, err)

	raw := renderedMessage(t, p)
	assert.Contains(t, raw, "To: staging@mailhive.local")
	assert.NotContains(t, raw, "customer.com")
}

func TestPrepareExpiresHeader(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	exp := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	e.ExpiresAt = &exp

	p, err := testPreparer().Prepare(e)
	require.NoError(t, err)

	assert.Contains(t, renderedMessage(t, p), "Expires: Tue, 01 Jul 2025 10:00:00 +0000")
}

func TestPrepareKeepsExplicitMessageID(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	mid := "<fixed@elsewhere.example>"
	e.MessageID = &mid

	p, err := testPreparer().Prepare(e)
	require.NoError(t, err)

	assert.Contains(t, renderedMessage(t, p), "Message-ID: <fixed@elsewhere.example>")
}

func TestPrepareAttachment(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	e.Attachments = []model.Attachment{{
		EmailID:     1,
		Filename:    "report.txt",
		Content:     []byte("quarterly numbers"),
		ContentType: "text/plain",
	}}

	p, err := testPreparer().Prepare(e)
	require.NoError(t, err)

	raw := renderedMessage(t, p)
	assert.Contains(t, raw, "report.txt")
}

func TestPrepareMissingBackend(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	e.Backend = nil

	_, err := testPreparer().Prepare(e)
	require.Error(t, err)
	assert.Equal(t, FailurePrepare, kindOf(err))
}

func TestPrepareBadCredentials(t *testing.T) {
	e := queuedEmail(t, 1, []string{"a@x.com"})
	e.Backend.EncryptedPassword = "not base64 ciphertext"

	_, err := testPreparer().Prepare(e)
	require.Error(t, err)
	assert.Equal(t, FailurePrepare, kindOf(err))
}
