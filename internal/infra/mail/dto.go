package mail

import (
	"context"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/entity"
)

// Job is a fully rendered email, ready to hand to SMTP or to the queue.
type Job struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Deliverer hands a Job to its transport.
type Deliverer interface {
	Deliver(ctx context.Context, job Job) error
}

type leadConfirmationData struct {
	Lead       *entity.Lead
	ClickURL   string
	OpenURL    string
	WebsiteURL string
	Company    config.Company
}

type teamAlertData struct {
	Lead         *entity.Lead
	Hot          bool
	DashboardURL string
}

type devisData struct {
	Devis      *entity.Devis
	WebsiteURL string
	Company    config.Company
}

type signatureData struct {
	Devis      *entity.Devis
	WebsiteURL string
	Company    config.Company
}

type reportData struct {
	Report       *entity.MonthlyReport
	DashboardURL string
}
