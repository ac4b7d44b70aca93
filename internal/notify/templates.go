package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/go-faster/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates renders e-mail bodies. Each template name has a plain text and
// an HTML variant.
type Templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// LoadTemplates parses the embedded e-mail templates.
func LoadTemplates() (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse text templates")
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse html templates")
	}
	return &Templates{text: text, html: html}, nil
}

// Render returns the plain text and HTML bodies of msg.
func (t *Templates) Render(msg EmailMessage) (plain, html string, err error) {
	var buf bytes.Buffer
	if err := t.text.ExecuteTemplate(&buf, msg.Template, msg.Data); err != nil {
		return "", "", errors.Wrapf(err, "render %s text", msg.Template)
	}
	plain = buf.String()

	buf.Reset()
	if err := t.html.ExecuteTemplate(&buf, msg.Template, msg.Data); err != nil {
		return "", "", errors.Wrapf(err, "render %s html", msg.Template)
	}
	return plain, buf.String(), nil
}
