package entity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DevisStatusBrouillon = "brouillon"
	DevisStatusEnvoye    = "envoye"
	DevisStatusSigne     = "signe"
	DevisStatusPaye      = "paye"
	DevisStatusRefuse    = "refuse"
)

// Line sources, in priority order.
const (
	DevisSourceCustom = "custom"
	DevisSourceBudget = "budget_manuel"
	DevisSourceOpenAI = "openai"
)

type LigneDevis struct {
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	Unite          string  `json:"unite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TotalHT        float64 `json:"total_ht"`
}

// NewLigneDevis validates a quote line and computes its total.
func NewLigneDevis(designation string, quantite float64, unite string, prixUnitaire float64) (LigneDevis, error) {
	designation = strings.TrimSpace(designation)
	if designation == "" {
		return LigneDevis{}, errors.New("designation is required")
	}
	if len([]rune(designation)) > 500 {
		return LigneDevis{}, errors.New("designation must not exceed 500 characters")
	}
	if quantite <= 0 || math.IsNaN(quantite) || math.IsInf(quantite, 0) {
		return LigneDevis{}, errors.New("quantite must be > 0")
	}
	if prixUnitaire <= 0 || math.IsNaN(prixUnitaire) || math.IsInf(prixUnitaire, 0) {
		return LigneDevis{}, errors.New("prix_unitaire_ht must be > 0")
	}
	return LigneDevis{
		Designation:    designation,
		Quantite:       quantite,
		Unite:          NormalizeUnite(unite),
		PrixUnitaireHT: prixUnitaire,
		TotalHT:        RoundMoney(quantite * prixUnitaire),
	}, nil
}

var unitAliases = map[string]string{
	"m2": "m2", "m²": "m2", "metre carre": "m2", "mètre carré": "m2",
	"ml": "ml", "metre lineaire": "ml", "mètre linéaire": "ml",
	"u": "unite", "unite": "unite", "unité": "unite", "piece": "unite", "pièce": "unite", "pce": "unite",
	"forfait": "forfait", "fft": "forfait", "ens": "forfait",
	"h": "heure", "heure": "heure", "heures": "heure",
	"j": "jour", "jour": "jour", "jours": "jour",
}

// NormalizeUnite maps unit spellings to m2, ml, unite, forfait, heure or jour.
// Unknown units become "unite".
func NormalizeUnite(raw string) string {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return u
	}
	return "unite"
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatEuro renders an amount the French way: "12 345,67 €".
func FormatEuro(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	digits := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	fmt.Fprintf(&b, ",%02d €", cents%100)
	return b.String()
}

// ComputeTotals returns HT, TVA and TTC for the given lines and VAT percentage.
func ComputeTotals(lignes []LigneDevis, tvaPct float64) (ht, tva, ttc float64) {
	for _, l := range lignes {
		ht += l.TotalHT
	}
	ht = RoundMoney(ht)
	tva = RoundMoney(ht * tvaPct / 100)
	ttc = RoundMoney(ht + tva)
	return ht, tva, ttc
}

// NewNumero builds DEV-YYYYMMDD-XXXXXX from three random bytes.
func NewNumero(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, 3)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("random numero suffix: %w", err)
	}
	return fmt.Sprintf("DEV-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

type Devis struct {
	ID     string `json:"id"`
	LeadID string `json:"lead_id"`
	Numero string `json:"numero"`

	ClientNom       string `json:"client_nom"`
	ClientPrenom    string `json:"client_prenom"`
	ClientEmail     string `json:"client_email"`
	ClientTelephone string `json:"client_telephone"`
	ClientAdresse   string `json:"client_adresse"`
	ClientVille     string `json:"client_ville"`

	Lignes        []LigneDevis `json:"lignes"`
	MontantHT     float64      `json:"montant_ht"`
	MontantTVA    float64      `json:"montant_tva"`
	MontantTTC    float64      `json:"montant_ttc"`
	TVAPct        float64      `json:"tva_pct"`
	ValiditeJours int          `json:"validite_jours"`
	DateValidite  time.Time    `json:"date_validite"`
	Notes         string       `json:"notes"`
	Source        string       `json:"source"`

	URLPDF               string     `json:"url_pdf"`
	Statut               string     `json:"statut"`
	DateSignature        *time.Time `json:"date_signature,omitempty"`
	DocuSealSubmissionID string     `json:"docuseal_submission_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDevis snapshots the client from the lead and computes totals.
func NewDevis(lead *Lead, numero string, lignes []LigneDevis, tvaPct float64, validiteJours int, notes, source string) *Devis {
	now := time.Now()
	ht, tva, ttc := ComputeTotals(lignes, tvaPct)
	return &Devis{
		ID:              uuid.New().String(),
		LeadID:          lead.ID,
		Numero:          numero,
		ClientNom:       lead.Nom,
		ClientPrenom:    lead.Prenom,
		ClientEmail:     lead.Email,
		ClientTelephone: lead.Telephone,
		ClientAdresse:   strings.TrimSpace(fmt.Sprintf("%s, %s %s", lead.Adresse, lead.CodePostal, lead.Ville)),
		ClientVille:     lead.Ville,
		Lignes:          lignes,
		MontantHT:       ht,
		MontantTVA:      tva,
		MontantTTC:      ttc,
		TVAPct:          tvaPct,
		ValiditeJours:   validiteJours,
		DateValidite:    now.AddDate(0, 0, validiteJours),
		Notes:           notes,
		Source:          source,
		Statut:          DevisStatusEnvoye,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (d *Devis) ClientFullName() string {
	return strings.TrimSpace(d.ClientPrenom + " " + d.ClientNom)
}

// Deletable reports whether the quote has not been signed, paid or refused yet.
func (d *Devis) Deletable() bool {
	return d.Statut == DevisStatusBrouillon || d.Statut == DevisStatusEnvoye
}

type DevisPatch struct {
	Statut        *string `json:"statut"`
	Notes         *string `json:"notes"`
	ValiditeJours *int    `json:"validite_jours"`
}

func (p DevisPatch) IsEmpty() bool {
	return p == DevisPatch{}
}

type DevisRepositoryInterface interface {
	Create(ctx context.Context, d *Devis) error
	FindByID(ctx context.Context, id string) (*Devis, error)
	ListByLead(ctx context.Context, leadID string) ([]*Devis, error)
	// FindLatestForSigner prefers a quote matching both email and phone, then email only.
	FindLatestForSigner(ctx context.Context, email, phone string) (*Devis, error)
	MarkSigned(ctx context.Context, id, signedURL, submissionID string, signedAt time.Time) error
	Update(ctx context.Context, id string, patch DevisPatch) (*Devis, error)
	Delete(ctx context.Context, id string) error
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*Devis, error)
}
