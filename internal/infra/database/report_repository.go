package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

// reportKPIs is the JSONB payload of a rapports row.
type reportKPIs struct {
	Leads      entity.LeadKPIs      `json:"lead_kpis"`
	Devis      entity.DevisKPIs     `json:"devis_kpis"`
	Finance    entity.FinancialKPIs `json:"financial_kpis"`
	TopClients []entity.TopClient   `json:"top_clients"`
}

type ReportRepository struct {
	DB *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *entity.MonthlyReport) error {
	kpis, err := json.Marshal(reportKPIs{
		Leads: rep.Leads, Devis: rep.Devis, Finance: rep.Finance, TopClients: rep.TopClients,
	})
	if err != nil {
		return err
	}
	query := `
		INSERT INTO rapports (id, mois, annee, date_debut, date_fin, kpis, url_pdf, email_envoye, destinataire, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.DB.ExecContext(ctx, query,
		rep.ID, rep.Periode.Mois, rep.Periode.Annee, rep.Periode.Debut, rep.Periode.Fin,
		kpis, rep.URLPDF, rep.EmailEnvoye, rep.Destinataire, rep.GenereLe,
	)
	return err
}

const reportColumns = `id, mois, annee, date_debut, date_fin, kpis, url_pdf, email_envoye, destinataire, created_at`

func scanReport(row rowScanner) (*entity.MonthlyReport, error) {
	var (
		rep  entity.MonthlyReport
		raw  []byte
		kpis reportKPIs
	)
	err := row.Scan(&rep.ID, &rep.Periode.Mois, &rep.Periode.Annee, &rep.Periode.Debut, &rep.Periode.Fin,
		&raw, &rep.URLPDF, &rep.EmailEnvoye, &rep.Destinataire, &rep.GenereLe)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &kpis); err != nil {
		return nil, fmt.Errorf("decode kpis: %w", err)
	}
	rep.Leads, rep.Devis, rep.Finance, rep.TopClients = kpis.Leads, kpis.Devis, kpis.Finance, kpis.TopClients
	if rep.TopClients == nil {
		rep.TopClients = []entity.TopClient{}
	}
	return &rep, nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*entity.MonthlyReport, error) {
	return scanReport(r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM rapports WHERE id = $1`, id))
}

func (r *ReportRepository) List(ctx context.Context, limit int) ([]*entity.MonthlyReport, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM rapports ORDER BY annee DESC, mois DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*entity.MonthlyReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

func (r *ReportRepository) ExistsForPeriod(ctx context.Context, mois, annee int) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rapports WHERE mois = $1 AND annee = $2)`, mois, annee).Scan(&exists)
	return exists, err
}

func (r *ReportRepository) MarkSent(ctx context.Context, id, destinataire string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE rapports SET email_envoye = TRUE, destinataire = $2 WHERE id = $1`, id, destinataire)
	if err != nil {
		return err
	}
	return expectRow(res)
}
