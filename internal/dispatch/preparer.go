package dispatch

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/mailhive/mailhive/internal/crypt"
	"github.com/mailhive/mailhive/internal/model"
	"github.com/mailhive/mailhive/internal/render"
)

// Prepared is a transport-ready message plus the dial descriptor of its
// resolved backend.
type Prepared struct {
	Email  *model.Email
	Msg    *gomail.Message
	Dialer *gomail.Dialer
}

// Preparer builds transport-ready messages. All failures here are
// FailurePrepare send errors: they count as retry attempts without
// ever opening a connection.
type Preparer struct {
	Renderer render.Renderer
	Key      []byte

	// Override reroutes everything to a fixed recipient list, a safety
	// valve for staging environments.
	Override []string

	MessageIDEnabled bool
	MessageIDDomain  string
}

func (p *Preparer) Prepare(e *model.Email) (*Prepared, error) {
	if e.Backend == nil {
		return nil, prepareError(fmt.Errorf("email %d: backend %d not found", e.ID, e.BackendID))
	}
	password, err := crypt.Decrypt(p.Key, e.Backend.EncryptedPassword)
	if err != nil {
		return nil, prepareError(fmt.Errorf("email %d: backend credentials: %w", e.ID, err))
	}

	subject, text, html := e.Subject, e.TextBody, e.HTMLBody
	if e.Template != nil {
		subject, text, html, err = p.Renderer.Render(e.Template, e.RenderContext)
		if err != nil {
			return nil, prepareError(fmt.Errorf("email %d: render: %w", e.ID, err))
		}
	}

	msg := gomail.NewMessage()
	from := e.Sender
	if from == "" {
		from = e.Backend.From
	}
	msg.SetHeader("From", from)

	to, cc, bcc := e.To, e.Cc, e.Bcc
	if len(p.Override) > 0 {
		to, cc, bcc = p.Override, nil, nil
	}
	msg.SetHeader("To", to...)
	if len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	if len(bcc) > 0 {
		msg.SetHeader("Bcc", bcc...)
	}
	msg.SetHeader("Subject", subject)

	if e.ExpiresAt != nil {
		msg.SetHeader("Expires", e.ExpiresAt.UTC().Format(time.RFC1123Z))
	}
	if p.MessageIDEnabled {
		mid := ""
		if e.MessageID != nil {
			mid = *e.MessageID
		}
		if mid == "" {
			mid = fmt.Sprintf("<%s@%s>", uuid.NewString(), p.MessageIDDomain)
		}
		msg.SetHeader("Message-ID", mid)
	}
	for k, v := range e.Headers {
		msg.SetHeader(k, v)
	}

	if text != "" {
		msg.SetBody("text/plain", text)
	}
	if html != "" {
		if text == "" {
			msg.SetBody("text/html", html)
		} else {
			msg.AddAlternative("text/html", html)
		}
	}

	for _, a := range e.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		headers := map[string][]string{}
		if a.ContentType != "" {
			headers["Content-Type"] = []string{a.ContentType}
		}
		for k, v := range a.Headers {
			headers[k] = []string{v}
		}
		if len(headers) > 0 {
			settings = append(settings, gomail.SetHeader(headers))
		}
		msg.Attach(a.Filename, settings...)
	}

	d := gomail.NewDialer(e.Backend.Host, e.Backend.Port, e.Backend.Username, password)
	d.SSL = e.Backend.TLS

	return &Prepared{Email: e, Msg: msg, Dialer: d}, nil
}
