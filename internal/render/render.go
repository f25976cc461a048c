// Package render is the template collaborator of the dispatch engine.
// Dispatch only depends on the Renderer interface; render failures
// surface as errors and feed the same retry policy as transport
// failures.
package render

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/mailhive/mailhive/internal/model"
)

type Renderer interface {
	Render(tpl *model.Template, ctx map[string]string) (subject, text, html string, err error)
}

// TemplateRenderer renders subject and plaintext with text/template and
// the HTML body with html/template so the body is escaped.
type TemplateRenderer struct{}

func (TemplateRenderer) Render(tpl *model.Template, ctx map[string]string) (string, string, string, error) {
	subject, err := renderText(tpl.Name+":subject", tpl.Subject, ctx)
	if err != nil {
		return "", "", "", err
	}
	text, err := renderText(tpl.Name+":text", tpl.TextBody, ctx)
	if err != nil {
		return "", "", "", err
	}
	html, err := renderHTML(tpl.Name+":html", tpl.HTMLBody, ctx)
	if err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}

func renderText(name, body string, ctx map[string]string) (string, error) {
	if body == "" {
		return "", nil
	}
	t, err := texttemplate.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, body string, ctx map[string]string) (string, error) {
	if body == "" {
		return "", nil
	}
	t, err := htmltemplate.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
