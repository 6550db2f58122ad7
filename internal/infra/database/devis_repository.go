package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

const devisColumns = `id, lead_id, numero, client_nom, client_prenom, client_email, client_telephone,
	client_adresse, client_ville, lignes, montant_ht, montant_tva, montant_ttc, tva_pct,
	validite_jours, date_validite, notes, source, url_pdf, statut, date_signature,
	docuseal_submission_id, created_at, updated_at`

type DevisRepository struct {
	DB *sql.DB
}

func NewDevisRepository(db *sql.DB) *DevisRepository {
	return &DevisRepository{DB: db}
}

func scanDevis(row rowScanner) (*entity.Devis, error) {
	var (
		d         entity.Devis
		leadID    sql.NullString
		lignes    []byte
		signature sql.NullTime
	)
	err := row.Scan(
		&d.ID, &leadID, &d.Numero, &d.ClientNom, &d.ClientPrenom, &d.ClientEmail, &d.ClientTelephone,
		&d.ClientAdresse, &d.ClientVille, &lignes, &d.MontantHT, &d.MontantTVA, &d.MontantTTC, &d.TVAPct,
		&d.ValiditeJours, &d.DateValidite, &d.Notes, &d.Source, &d.URLPDF, &d.Statut, &signature,
		&d.DocuSealSubmissionID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.LeadID = stringValue(leadID)
	d.DateSignature = timePtr(signature)
	if err := json.Unmarshal(lignes, &d.Lignes); err != nil {
		return nil, fmt.Errorf("decode lignes: %w", err)
	}
	return &d, nil
}

func (r *DevisRepository) Create(ctx context.Context, d *entity.Devis) error {
	lignes, err := json.Marshal(d.Lignes)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO devis (id, lead_id, numero, client_nom, client_prenom, client_email, client_telephone,
			client_adresse, client_ville, lignes, montant_ht, montant_tva, montant_ttc, tva_pct,
			validite_jours, date_validite, notes, source, url_pdf, statut, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err = r.DB.ExecContext(ctx, query,
		d.ID, nullString(d.LeadID), d.Numero, d.ClientNom, d.ClientPrenom, d.ClientEmail, d.ClientTelephone,
		d.ClientAdresse, d.ClientVille, lignes, d.MontantHT, d.MontantTVA, d.MontantTTC, d.TVAPct,
		d.ValiditeJours, d.DateValidite, d.Notes, d.Source, d.URLPDF, d.Statut, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *DevisRepository) FindByID(ctx context.Context, id string) (*entity.Devis, error) {
	return scanDevis(r.DB.QueryRowContext(ctx, `SELECT `+devisColumns+` FROM devis WHERE id = $1`, id))
}

func (r *DevisRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.Devis, error) {
	return r.queryDevis(ctx, `SELECT `+devisColumns+` FROM devis WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
}

// FindLatestForSigner prefers the newest quote matching both email and phone.
func (r *DevisRepository) FindLatestForSigner(ctx context.Context, email, phone string) (*entity.Devis, error) {
	query := `SELECT ` + devisColumns + ` FROM devis
		WHERE lower(client_email) = lower($1)
		ORDER BY (client_telephone = $2 AND $2 <> '') DESC, created_at DESC
		LIMIT 1`
	return scanDevis(r.DB.QueryRowContext(ctx, query, email, phone))
}

func (r *DevisRepository) MarkSigned(ctx context.Context, id, signedURL, submissionID string, signedAt time.Time) error {
	query := `
		UPDATE devis SET url_pdf = $2, statut = $3, date_signature = $4,
			docuseal_submission_id = COALESCE(NULLIF($5, ''), docuseal_submission_id),
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, signedURL, entity.DevisStatusSigne, signedAt, submissionID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *DevisRepository) Update(ctx context.Context, id string, p entity.DevisPatch) (*entity.Devis, error) {
	set := &setBuilder{args: []any{id}}
	set.add("statut", p.Statut)
	set.add("notes", p.Notes)
	set.add("validite_jours", p.ValiditeJours)
	if p.ValiditeJours != nil {
		set.cols = append(set.cols, fmt.Sprintf("date_validite = created_at + make_interval(days => $%d)", len(set.args)))
	}
	if set.empty() {
		return r.FindByID(ctx, id)
	}

	query := `UPDATE devis SET ` + set.clause() + `, updated_at = NOW() WHERE id = $1 RETURNING ` + devisColumns
	return scanDevis(r.DB.QueryRowContext(ctx, query, set.args...))
}

func (r *DevisRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM devis WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *DevisRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Devis, error) {
	query := `SELECT ` + devisColumns + ` FROM devis WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`
	return r.queryDevis(ctx, query, from, to)
}

func (r *DevisRepository) queryDevis(ctx context.Context, query string, args ...any) ([]*entity.Devis, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*entity.Devis{}
	for rows.Next() {
		d, err := scanDevis(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
