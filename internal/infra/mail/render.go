package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplLeadConfirmation = "lead_confirmation.html"
	tmplTeamAlert        = "team_alert.html"
	tmplDevis            = "devis.html"
	tmplSignature        = "signature_confirmation.html"
	tmplRapport          = "rapport.html"
)

// Renderer turns template data into the HTML body and its plain-text alternative.
type Renderer struct {
	tmpl   *template.Template
	text   *converter.Converter
	policy *bluemonday.Policy
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		policy: bluemonday.StrictPolicy(),
		text: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}

	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"sanitize": r.sanitize,
		"euro":     entity.FormatEuro,
		"qty":      formatNumber,
		"date":     formatDate,
		"deref":    deref,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Render executes the named template. The text part is derived from the HTML.
func (r *Renderer) Render(name string, data any) (html, text string, err error) {
	var body bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", name, err)
	}
	html = body.String()

	text, err = r.text.ConvertString(html)
	if err != nil {
		return "", "", fmt.Errorf("convert %s to text: %w", name, err)
	}
	return html, strings.TrimSpace(text), nil
}

// sanitize strips every tag from user supplied text and keeps its line breaks.
func (r *Renderer) sanitize(s string) template.HTML {
	clean := r.policy.Sanitize(s)
	clean = strings.ReplaceAll(strings.TrimSpace(clean), "\n", "<br>")
	return template.HTML(clean)
}

func formatNumber(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
