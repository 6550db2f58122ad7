package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ReportPeriod struct {
	Mois  int       `json:"mois"`
	Annee int       `json:"annee"`
	Debut time.Time `json:"date_debut"`
	Fin   time.Time `json:"date_fin"`
}

// NewReportPeriod covers the whole calendar month [first day, first day of next month).
func NewReportPeriod(mois, annee int, loc *time.Location) (ReportPeriod, error) {
	if mois < 1 || mois > 12 {
		return ReportPeriod{}, fmt.Errorf("mois must be between 1 and 12")
	}
	if annee < 2020 {
		return ReportPeriod{}, fmt.Errorf("annee must be >= 2020")
	}
	if loc == nil {
		loc = time.UTC
	}
	debut := time.Date(annee, time.Month(mois), 1, 0, 0, 0, 0, loc)
	return ReportPeriod{Mois: mois, Annee: annee, Debut: debut, Fin: debut.AddDate(0, 1, 0)}, nil
}

// PreviousMonth returns the period before the month containing now.
func PreviousMonth(now time.Time) ReportPeriod {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	p, _ := NewReportPeriod(int(first.Month()), first.Year(), now.Location())
	return p
}

var moisFR = [...]string{"Janvier", "Février", "Mars", "Avril", "Mai", "Juin", "Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre"}

func (p ReportPeriod) Title() string {
	return fmt.Sprintf("%s %d", moisFR[p.Mois-1], p.Annee)
}

type LeadKPIs struct {
	Total          int     `json:"total"`
	Gagnes         int     `json:"gagnes"`
	Perdus         int     `json:"perdus"`
	EnCours        int     `json:"en_cours"`
	TauxConversion float64 `json:"taux_conversion"`
	TauxPerte      float64 `json:"taux_perte"`
}

type DevisKPIs struct {
	Total         int     `json:"total"`
	Signes        int     `json:"signes"`
	Payes         int     `json:"payes"`
	EnAttente     int     `json:"en_attente"`
	Refuses       int     `json:"refuses"`
	TauxSignature float64 `json:"taux_signature"`
	TauxPaiement  float64 `json:"taux_paiement"`
}

type FinancialKPIs struct {
	CAMensuel   float64 `json:"ca_mensuel"`
	CAEncaisse  float64 `json:"ca_encaisse"`
	PanierMoyen float64 `json:"panier_moyen"`
	CAPotentiel float64 `json:"ca_potentiel"`
}

type TopClient struct {
	Rang         int     `json:"rang"`
	Nom          string  `json:"nom"`
	Email        string  `json:"email"`
	Ville        string  `json:"ville,omitempty"`
	NbDevis      int     `json:"nb_devis"`
	MontantTotal float64 `json:"montant_total"`
}

type MonthlyReport struct {
	ID           string        `json:"id"`
	Periode      ReportPeriod  `json:"periode"`
	GenereLe     time.Time     `json:"genere_le"`
	Leads        LeadKPIs      `json:"lead_kpis"`
	Devis        DevisKPIs     `json:"devis_kpis"`
	Finance      FinancialKPIs `json:"financial_kpis"`
	TopClients   []TopClient   `json:"top_clients"`
	URLPDF       string        `json:"url_pdf,omitempty"`
	EmailEnvoye  bool          `json:"email_envoye"`
	Destinataire string        `json:"destinataire,omitempty"`
}

func NewMonthlyReport(p ReportPeriod) *MonthlyReport {
	return &MonthlyReport{
		ID:         uuid.New().String(),
		Periode:    p,
		GenereLe:   time.Now(),
		TopClients: []TopClient{},
	}
}

type ReportRepositoryInterface interface {
	Create(ctx context.Context, r *MonthlyReport) error
	FindByID(ctx context.Context, id string) (*MonthlyReport, error)
	List(ctx context.Context, limit int) ([]*MonthlyReport, error)
	ExistsForPeriod(ctx context.Context, mois, annee int) (bool, error)
	MarkSent(ctx context.Context, id, destinataire string) error
}
