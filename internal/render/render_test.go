package render

import (
	"strings"
	"testing"

	"github.com/mailhive/mailhive/internal/model"
)

func TestRender(t *testing.T) {
	tpl := &model.Template{
		Name:     "welcome",
		Subject:  "Hi {{.name}}",
		TextBody: "Hello {{.name}} from {{.city}}",
		HTMLBody: "<p>Hello {{.name}}</p>",
	}
	subject, text, html, err := TemplateRenderer{}.Render(tpl, map[string]string{
		"name": "Ada",
		"city": "London",
	})
	if err != nil {
		t.Fatal(err)
	}
	if subject != "Hi Ada" {
		t.Fatalf("subject: %q", subject)
	}
	if text != "Hello Ada from London" {
		t.Fatalf("text: %q", text)
	}
	if html != "<p>Hello Ada</p>" {
		t.Fatalf("html: %q", html)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	tpl := &model.Template{
		Name:     "notice",
		HTMLBody: "<p>{{.payload}}</p>",
	}
	_, _, html, err := TemplateRenderer{}.Render(tpl, map[string]string{
		"payload": "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("html not escaped: %q", html)
	}
}

func TestRenderBadTemplate(t *testing.T) {
	tpl := &model.Template{Name: "broken", Subject: "{{.oops"}
	if _, _, _, err := (TemplateRenderer{}).Render(tpl, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRenderEmptyBodies(t *testing.T) {
	tpl := &model.Template{Name: "bare", Subject: "s"}
	subject, text, html, err := TemplateRenderer{}.Render(tpl, nil)
	if err != nil {
		t.Fatal(err)
	}
	if subject != "s" || text != "" || html != "" {
		t.Fatalf("got %q %q %q", subject, text, html)
	}
}
