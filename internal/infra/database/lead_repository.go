package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

const leadColumns = `id, nom, prenom, email, telephone, type_projet, adresse, ville, code_postal,
	surface, budget_estime, budget_negocie, delai, description, source, user_agent, ip_address,
	fingerprint, score_qualification, urgence, ai_notes, ai_segments, ai_raw,
	email_ouvert, email_ouvert_count, email_clic_count, derniere_interaction, lead_chaud, statut,
	lignes_devis_custom, notes_devis_custom, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l                              entity.Lead
		surface, budget, budgetNegocie sql.NullInt64
		interaction                    sql.NullTime
		segments                       pq.StringArray
		lignes                         []byte
	)
	err := row.Scan(
		&l.ID, &l.Nom, &l.Prenom, &l.Email, &l.Telephone, &l.TypeProjet, &l.Adresse, &l.Ville, &l.CodePostal,
		&surface, &budget, &budgetNegocie, &l.Delai, &l.Description, &l.Source, &l.UserAgent, &l.IPAddress,
		&l.Fingerprint, &l.Score, &l.Urgence, &l.AINotes, &segments, &l.AIRaw,
		&l.EmailOuvert, &l.EmailOuvertCount, &l.EmailClicCount, &interaction, &l.LeadChaud, &l.Statut,
		&lignes, &l.NotesDevisCustom, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l.Surface = intPtr(surface)
	l.BudgetEstime = intPtr(budget)
	l.BudgetNegocie = intPtr(budgetNegocie)
	l.DerniereInteraction = timePtr(interaction)
	l.AISegments = []string(segments)
	if l.AISegments == nil {
		l.AISegments = []string{}
	}
	if len(lignes) > 0 {
		if err := json.Unmarshal(lignes, &l.LignesDevisCustom); err != nil {
			return nil, fmt.Errorf("decode lignes_devis_custom: %w", err)
		}
	}
	return &l, nil
}

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	query := `
		INSERT INTO leads (id, nom, prenom, email, telephone, type_projet, adresse, ville, code_postal,
			surface, budget_estime, delai, description, source, user_agent, ip_address, fingerprint,
			score_qualification, urgence, ai_segments, statut, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := r.DB.ExecContext(ctx, query,
		l.ID, l.Nom, l.Prenom, l.Email, l.Telephone, l.TypeProjet, l.Adresse, l.Ville, l.CodePostal,
		l.Surface, l.BudgetEstime, l.Delai, l.Description, l.Source, l.UserAgent, l.IPAddress, l.Fingerprint,
		l.Score, l.Urgence, pq.Array(l.AISegments), l.Statut, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND deleted_at IS NULL`
	return scanLead(r.DB.QueryRowContext(ctx, query, id))
}

func (r *LeadRepository) FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE fingerprint = $1 AND created_at >= $2 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT 1`
	return scanLead(r.DB.QueryRowContext(ctx, query, fingerprint, since))
}

func (r *LeadRepository) UpdateQualification(ctx context.Context, id string, q entity.Qualification, hot bool) error {
	query := `
		UPDATE leads SET
			score_qualification = $2,
			urgence = $3,
			ai_notes = $4,
			ai_segments = $5,
			ai_raw = $6,
			lead_chaud = lead_chaud OR $7,
			statut = CASE WHEN statut = 'nouveau' THEN 'qualifie' ELSE statut END,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := r.DB.ExecContext(ctx, query, id, q.Score, q.Urgence, q.Recommandation, pq.Array(q.Segments), q.Raw, hot)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// RecordOpen increments the open counter in one statement. Reaching the
// threshold flips the lead to hot.
func (r *LeadRepository) RecordOpen(ctx context.Context, id string, hotOpenThreshold int) (*entity.Lead, error) {
	query := `
		UPDATE leads SET
			email_ouvert_count = email_ouvert_count + 1,
			email_ouvert = TRUE,
			derniere_interaction = NOW(),
			lead_chaud = lead_chaud OR email_ouvert_count + 1 >= $2,
			statut = CASE
				WHEN email_ouvert_count + 1 >= $2 AND statut IN ('nouveau', 'qualifie') THEN 'chaud'
				ELSE statut END,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + leadColumns
	return scanLead(r.DB.QueryRowContext(ctx, query, id, hotOpenThreshold))
}

// RecordClick increments the click counter; any click makes the lead hot with a full score.
func (r *LeadRepository) RecordClick(ctx context.Context, id string) (*entity.Lead, error) {
	query := `
		UPDATE leads SET
			email_clic_count = email_clic_count + 1,
			derniere_interaction = NOW(),
			lead_chaud = TRUE,
			score_qualification = 100,
			statut = CASE WHEN statut IN ('nouveau', 'qualifie') THEN 'chaud' ELSE statut END,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + leadColumns
	return scanLead(r.DB.QueryRowContext(ctx, query, id))
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id, statut string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET statut = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, statut)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// Update applies the non-nil patch fields. Column names come from a fixed list.
func (r *LeadRepository) Update(ctx context.Context, id string, p entity.LeadPatch) (*entity.Lead, error) {
	set := &setBuilder{args: []any{id}}
	set.add("nom", p.Nom)
	set.add("prenom", p.Prenom)
	set.add("email", p.Email)
	set.add("telephone", p.Telephone)
	set.add("type_projet", p.TypeProjet)
	set.add("surface", p.Surface)
	set.add("budget_estime", p.BudgetEstime)
	set.add("budget_negocie", p.BudgetNegocie)
	set.add("delai", p.Delai)
	set.add("description", p.Description)
	set.add("adresse", p.Adresse)
	set.add("ville", p.Ville)
	set.add("code_postal", p.CodePostal)
	set.add("statut", p.Statut)
	set.add("notes_devis_custom", p.NotesDevisCustom)
	if p.LignesDevisCustom != nil {
		b, err := json.Marshal(*p.LignesDevisCustom)
		if err != nil {
			return nil, err
		}
		set.add("lignes_devis_custom", b)
	}
	if set.empty() {
		return r.FindByID(ctx, id)
	}

	query := `UPDATE leads SET ` + set.clause() + `, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL RETURNING ` + leadColumns
	return scanLead(r.DB.QueryRowContext(ctx, query, set.args...))
}

func (r *LeadRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *LeadRepository) List(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE deleted_at IS NULL`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND statut = $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return r.queryLeads(ctx, query, args...)
}

func (r *LeadRepository) ListHot(ctx context.Context, threshold int) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE deleted_at IS NULL AND score_qualification >= $1
		ORDER BY score_qualification DESC, created_at DESC LIMIT 100`
	return r.queryLeads(ctx, query, threshold)
}

func (r *LeadRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE deleted_at IS NULL AND created_at >= $1 AND created_at < $2
		ORDER BY created_at`
	return r.queryLeads(ctx, query, from, to)
}

func (r *LeadRepository) queryLeads(ctx context.Context, query string, args ...any) ([]*entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*entity.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// setBuilder accumulates "col = $n" fragments; $1 is reserved for the id.
type setBuilder struct {
	cols []string
	args []any
}

func (s *setBuilder) add(col string, v any) {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return
		}
		v = *x
	case *int:
		if x == nil {
			return
		}
		v = *x
	}
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setBuilder) empty() bool {
	return len(s.cols) == 0
}

func (s *setBuilder) clause() string {
	return strings.Join(s.cols, ", ")
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
