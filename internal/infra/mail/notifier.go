package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

const pdfContentType = "application/pdf"

// Notifier renders every outgoing email and hands it to a Deliverer:
// the SMTP Sender directly, or the queue producer when AMQP is enabled.
type Notifier struct {
	Deliverer    Deliverer
	Renderer     *Renderer
	AdminEmail   string
	WebsiteURL   string
	DashboardURL string
	Company      config.Company
}

func NewNotifier(d Deliverer, r *Renderer, cfg *config.Config) *Notifier {
	return &Notifier{
		Deliverer:    d,
		Renderer:     r,
		AdminEmail:   cfg.AdminEmail,
		WebsiteURL:   cfg.WebsiteURL,
		DashboardURL: cfg.DashboardURL,
		Company:      cfg.Tunables.Company,
	}
}

var _ usecase.Notifier = (*Notifier)(nil)

func (n *Notifier) SendLeadConfirmation(ctx context.Context, lead *entity.Lead, links usecase.TrackingLinks) error {
	if lead.Email == "" {
		return errors.New("lead has no email")
	}
	data := leadConfirmationData{
		Lead:       lead,
		ClickURL:   links.Click,
		OpenURL:    links.Open,
		WebsiteURL: n.WebsiteURL,
		Company:    n.Company,
	}
	subject := fmt.Sprintf("Merci %s %s ! Votre demande a été reçue ✅", lead.Prenom, lead.Nom)
	return n.deliver(ctx, tmplLeadConfirmation, data, subject, []string{lead.Email})
}

func (n *Notifier) SendTeamAlert(ctx context.Context, lead *entity.Lead, hot bool) error {
	subject := fmt.Sprintf("📋 Nouveau lead : %s %s (Score : %d)", lead.Nom, lead.Prenom, lead.Score)
	if hot {
		subject = fmt.Sprintf("🚨 URGENT : Lead chaud - %s %s (Score : %d)", lead.Nom, lead.Prenom, lead.Score)
	}
	data := teamAlertData{Lead: lead, Hot: hot, DashboardURL: n.DashboardURL}
	return n.deliver(ctx, tmplTeamAlert, data, subject, []string{n.AdminEmail})
}

func (n *Notifier) SendDevis(ctx context.Context, devis *entity.Devis, pdf []byte) error {
	if devis.ClientEmail == "" {
		return errors.New("devis has no client email")
	}
	data := devisData{Devis: devis, WebsiteURL: n.WebsiteURL, Company: n.Company}
	subject := fmt.Sprintf("Votre devis ToitureAI n°%s", devis.Numero)
	return n.deliver(ctx, tmplDevis, data, subject, []string{devis.ClientEmail},
		Attachment{Name: "Devis_" + devis.Numero + ".pdf", ContentType: pdfContentType, Content: pdf})
}

func (n *Notifier) SendSignatureConfirmation(ctx context.Context, devis *entity.Devis) error {
	if devis.ClientEmail == "" {
		return errors.New("devis has no client email")
	}
	data := signatureData{Devis: devis, WebsiteURL: n.WebsiteURL, Company: n.Company}
	subject := fmt.Sprintf("Votre devis ToitureAI %s a été signé", devis.Numero)
	return n.deliver(ctx, tmplSignature, data, subject, []string{devis.ClientEmail})
}

func (n *Notifier) SendMonthlyReport(ctx context.Context, report *entity.MonthlyReport, to string, pdf []byte) error {
	data := reportData{Report: report, DashboardURL: n.DashboardURL}
	subject := "📊 Rapport mensuel ToitureAI - " + report.Periode.Title()
	name := fmt.Sprintf("rapport_%d_%02d.pdf", report.Periode.Annee, report.Periode.Mois)
	return n.deliver(ctx, tmplRapport, data, subject, []string{to},
		Attachment{Name: name, ContentType: pdfContentType, Content: pdf})
}

func (n *Notifier) deliver(ctx context.Context, tmpl string, data any, subject string, to []string, attachments ...Attachment) error {
	html, text, err := n.Renderer.Render(tmpl, data)
	if err != nil {
		return err
	}
	return n.Deliverer.Deliver(ctx, Job{
		To:          to,
		Subject:     subject,
		HTML:        html,
		Text:        text,
		Attachments: attachments,
	})
}
