package usecase

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

// FlexString accepts a JSON string, number or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// LeadWebhookInput is the landing page form as posted to the lead webhook.
type LeadWebhookInput struct {
	Nom            string     `json:"nom"`
	Prenom         string     `json:"prenom"`
	Email          string     `json:"email"`
	Telephone      string     `json:"telephone"`
	TypeDeProjet   string     `json:"typeDeProjet"`
	Adresse        string     `json:"adresse"`
	Ville          string     `json:"ville"`
	CodePostal     string     `json:"codePostal"`
	RGPD           bool       `json:"rgpd"`
	Surface        FlexString `json:"surface"`
	Budget         FlexString `json:"budget"`
	Delai          string     `json:"delai"`
	Description    string     `json:"description"`
	Timestamp      string     `json:"timestamp"`
	Source         string     `json:"source"`
	TurnstileToken string     `json:"turnstileToken"`

	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LeadSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Score string `json:"score"`
}

type IngestLeadOutput struct {
	Status      string      `json:"status"`
	Message     string      `json:"message"`
	Lead        LeadSummary `json:"lead"`
	Duplicate   bool        `json:"-"`
	FailedSteps []string    `json:"-"`
}

type TrackingLinks struct {
	Click string
	Open  string
}

type TrackLeadInput struct {
	LeadID    string
	EventType string
	Signature string
}

type TrackLeadOutput struct {
	Lead      *entity.Lead
	BecameHot bool
}

type LigneInput struct {
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	Unite          string  `json:"unite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
}

type DevisParams struct {
	TVA           *float64 `json:"tva"`
	ValiditeJours *int     `json:"validite_jours"`
}

type GenerateDevisInput struct {
	LeadID            string       `json:"lead_id"`
	LignesDevisCustom []LigneInput `json:"lignes_devis_custom"`
	NotesDevisCustom  string       `json:"notes_devis_custom"`
	BudgetNegocie     *float64     `json:"budget_negocie"`
	Params            *DevisParams `json:"params"`
}

type GenerateDevisOutput struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	DevisID    string  `json:"devis_id"`
	Numero     string  `json:"numero"`
	URLPDF     string  `json:"url_pdf"`
	MontantTTC float64 `json:"montant_ttc"`
	Source     string  `json:"source"`
	EmailSent  bool    `json:"email_envoye"`
}

type DocuSealSubmitter struct {
	ID    FlexString `json:"id"`
	Email string     `json:"email"`
	Phone string     `json:"phone"`
	Name  string     `json:"name"`
}

type DocuSealDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type DocuSealEvent struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		ID         FlexString          `json:"id"`
		Submitters []DocuSealSubmitter `json:"submitters"`
		Documents  []DocuSealDocument  `json:"documents"`
	} `json:"data"`
}

type ProcessSignatureOutput struct {
	Ignored   bool   `json:"-"`
	DevisID   string `json:"devis_id,omitempty"`
	Numero    string `json:"numero,omitempty"`
	SignedURL string `json:"url_pdf,omitempty"`
}

type GenerateReportInput struct {
	Mois              *int   `json:"mois"`
	Annee             *int   `json:"annee"`
	EnvoyerEmail      *bool  `json:"envoyer_email"`
	EmailDestinataire string `json:"email_destinataire"`
}
