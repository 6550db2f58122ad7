package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

type ErrorLogRepository struct {
	DB *sql.DB
}

func NewErrorLogRepository(db *sql.DB) *ErrorLogRepository {
	return &ErrorLogRepository{DB: db}
}

func (r *ErrorLogRepository) Insert(ctx context.Context, e *entity.ErrorLog) error {
	var details []byte
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			// keep the row, drop what cannot be encoded
			b = []byte(`{"details_error":"unencodable"}`)
		}
		details = b
	}

	query := `
		INSERT INTO error_logs (workflow, node, message, details, execution_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Workflow, e.Node, e.Message, details, e.ExecutionID, e.CreatedAt,
	).Scan(&e.ID)
}

func (r *ErrorLogRepository) ListRecent(ctx context.Context, limit int) ([]*entity.ErrorLog, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, workflow, node, message, details, execution_id, created_at
		FROM error_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*entity.ErrorLog{}
	for rows.Next() {
		var (
			e       entity.ErrorLog
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Workflow, &e.Node, &e.Message, &details, &e.ExecutionID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		logs = append(logs, &e)
	}
	return logs, rows.Err()
}
