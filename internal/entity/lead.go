package entity

import (
	"context"
	"encoding/hex"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

var ErrNotFound = errors.New("not found")

// Lead statuses. Only the ones this service writes are listed; admins may set others.
const (
	LeadStatusNouveau     = "nouveau"
	LeadStatusQualifie    = "qualifie"
	LeadStatusChaud       = "chaud"
	LeadStatusDevisEnvoye = "devis_envoye"
	LeadStatusSigne       = "signe"
)

const (
	UrgenceFaible  = "faible"
	UrgenceMoyenne = "moyenne"
	UrgenceHaute   = "haute"
)

const (
	ProjectReparation   = "reparation"
	ProjectRenovation   = "renovation"
	ProjectIsolation    = "isolation"
	ProjectInstallation = "installation"
	ProjectEntretien    = "entretien"
	ProjectAutre        = "autre"
)

const (
	DelaiUrgent        = "urgent"
	DelaiUneDeuxSem    = "1-2 semaines"
	DelaiUnMois        = "1 mois"
	DelaiDeuxTroisMois = "2-3 mois"
	DelaiFlexible      = "flexible"
)

type Lead struct {
	ID        string `json:"id"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`

	TypeProjet    string `json:"type_projet"`
	Adresse       string `json:"adresse"`
	Ville         string `json:"ville"`
	CodePostal    string `json:"code_postal"`
	Surface       *int   `json:"surface,omitempty"`
	BudgetEstime  *int   `json:"budget_estime,omitempty"`
	BudgetNegocie *int   `json:"budget_negocie,omitempty"`
	Delai         string `json:"delai"`
	Description   string `json:"description"`

	Source      string `json:"source"`
	UserAgent   string `json:"user_agent,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	Fingerprint string `json:"-"`

	Score      int      `json:"score_qualification"`
	Urgence    string   `json:"urgence"`
	AINotes    string   `json:"ai_notes"`
	AISegments []string `json:"ai_segments"`
	AIRaw      string   `json:"ai_raw,omitempty"`

	EmailOuvert         bool       `json:"email_ouvert"`
	EmailOuvertCount    int        `json:"email_ouvert_count"`
	EmailClicCount      int        `json:"email_clic_count"`
	DerniereInteraction *time.Time `json:"derniere_interaction,omitempty"`
	LeadChaud           bool       `json:"lead_chaud"`
	Statut              string     `json:"statut"`

	LignesDevisCustom []LigneDevis `json:"lignes_devis_custom,omitempty"`
	NotesDevisCustom  string       `json:"notes_devis_custom,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// NewLead stamps identity and defaults on an already-normalized lead.
func NewLead(l Lead) *Lead {
	now := time.Now()
	l.ID = uuid.New().String()
	l.Statut = LeadStatusNouveau
	l.Score = 50
	l.Urgence = UrgenceMoyenne
	if l.Source == "" {
		l.Source = "landing-page-astro"
	}
	if l.Delai == "" {
		l.Delai = DelaiFlexible
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	return &l
}

func (l *Lead) FullName() string {
	return strings.TrimSpace(l.Prenom + " " + l.Nom)
}

func (l *Lead) HasFullAddress() bool {
	return l.Adresse != "" && l.Ville != "" && l.CodePostal != ""
}

// ComputeFingerprint hashes the fields that identify a resubmission of the same request.
func (l *Lead) ComputeFingerprint() string {
	parts := []string{l.Email, l.Telephone, l.TypeProjet, l.CodePostal, strings.TrimSpace(l.Description)}
	sum := blake3.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Qualification is the scoring attached to a lead, by the AI or by the offline estimator.
type Qualification struct {
	Score          int      `json:"score"`
	Urgence        string   `json:"urgence"`
	Recommandation string   `json:"recommandation"`
	Segments       []string `json:"segments"`
	Raw            string   `json:"-"`
	Fallback       bool     `json:"-"`
}

// Clamp forces the qualification into its allowed ranges.
func (q Qualification) Clamp() Qualification {
	if q.Score < 0 {
		q.Score = 0
	}
	if q.Score > 100 {
		q.Score = 100
	}
	switch q.Urgence {
	case UrgenceFaible, UrgenceMoyenne, UrgenceHaute:
	default:
		q.Urgence = UrgenceMoyenne
	}
	if r := []rune(q.Recommandation); len(r) > 500 {
		q.Recommandation = string(r[:500])
	}
	if q.Segments == nil {
		q.Segments = []string{}
	}
	return q
}

// LeadPatch carries the admin-editable fields. Nil means "leave unchanged".
type LeadPatch struct {
	Nom               *string       `json:"nom"`
	Prenom            *string       `json:"prenom"`
	Email             *string       `json:"email"`
	Telephone         *string       `json:"telephone"`
	TypeProjet        *string       `json:"type_projet"`
	Surface           *int          `json:"surface"`
	BudgetEstime      *int          `json:"budget_estime"`
	BudgetNegocie     *int          `json:"budget_negocie"`
	Delai             *string       `json:"delai"`
	Description       *string       `json:"description"`
	Adresse           *string       `json:"adresse"`
	Ville             *string       `json:"ville"`
	CodePostal        *string       `json:"code_postal"`
	Statut            *string       `json:"statut"`
	LignesDevisCustom *[]LigneDevis `json:"lignes_devis_custom"`
	NotesDevisCustom  *string       `json:"notes_devis_custom"`
}

func (p LeadPatch) IsEmpty() bool {
	return p == LeadPatch{}
}

type LeadFilter struct {
	Limit  int
	Offset int
	Status string
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*Lead, error)
	UpdateQualification(ctx context.Context, id string, q Qualification, hot bool) error
	// RecordOpen and RecordClick increment counters in a single statement.
	RecordOpen(ctx context.Context, id string, hotOpenThreshold int) (*Lead, error)
	RecordClick(ctx context.Context, id string) (*Lead, error)
	UpdateStatus(ctx context.Context, id, statut string) error
	Update(ctx context.Context, id string, patch LeadPatch) (*Lead, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	ListHot(ctx context.Context, threshold int) ([]*Lead, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*Lead, error)
}

var nonPhoneChars = regexp.MustCompile(`[^0-9+]`)

// NormalizePhone converts French numbers to E.164 (+33...).
func NormalizePhone(raw string) string {
	p := nonPhoneChars.ReplaceAllString(raw, "")
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "0") && len(p) >= 10 {
		return "+33" + p[1:]
	}
	if !strings.HasPrefix(p, "+") {
		return "+33" + p
	}
	return p
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var projectKeywords = []struct {
	kind     string
	keywords []string
}{
	{ProjectReparation, []string{"repar", "répar", "fuite", "urgence", "tuile cass"}},
	{ProjectRenovation, []string{"renov", "rénov", "refaire", "refection", "réfection"}},
	{ProjectIsolation, []string{"isol"}},
	{ProjectInstallation, []string{"install", "pose", "neuf", "velux", "fenetre de toit", "fenêtre de toit"}},
	{ProjectEntretien, []string{"entretien", "nettoyage", "demoussage", "démoussage", "traitement"}},
}

// NormalizeProjectType maps the free-form landing page value to a known project type.
func NormalizeProjectType(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ProjectAutre
	}
	for _, pk := range projectKeywords {
		if v == pk.kind {
			return pk.kind
		}
	}
	for _, pk := range projectKeywords {
		for _, kw := range pk.keywords {
			if strings.Contains(v, kw) {
				return pk.kind
			}
		}
	}
	return ProjectAutre
}

// NormalizeDelai maps the requested timeframe to a known bucket, flexible by default.
func NormalizeDelai(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return DelaiFlexible
	case strings.Contains(v, "urgent") || strings.Contains(v, "immédiat") || strings.Contains(v, "immediat"):
		return DelaiUrgent
	case strings.Contains(v, "semaine"):
		return DelaiUneDeuxSem
	case strings.Contains(v, "2-3") || strings.Contains(v, "3 mois") || strings.Contains(v, "trimestre"):
		return DelaiDeuxTroisMois
	case strings.Contains(v, "mois"):
		return DelaiUnMois
	default:
		return DelaiFlexible
	}
}

var quantityNoise = regexp.MustCompile(`[^0-9.,-]`)

// MaxQuantity is the largest surface or budget an INTEGER column holds.
const MaxQuantity = math.MaxInt32

func parseQuantity(raw string) (float64, bool) {
	v := quantityNoise.ReplaceAllString(raw, "")
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseQuantity reads "120", "120 m²", "15 000 €" or "1500.50". Values <= 0, values
// above MaxQuantity and unparseable input give nil.
func ParseQuantity(raw string) *int {
	f, ok := parseQuantity(raw)
	if !ok || f > MaxQuantity {
		return nil
	}
	n := int(f)
	if n <= 0 {
		return nil
	}
	return &n
}

// QuantityTooLarge reports whether raw parses to a number above MaxQuantity.
func QuantityTooLarge(raw string) bool {
	f, ok := parseQuantity(raw)
	return ok && f > MaxQuantity
}
