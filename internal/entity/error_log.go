package entity

import (
	"context"
	"time"
)

// ErrorLog is an append-only record of a failure at a given workflow node.
type ErrorLog struct {
	ID          int64          `json:"id"`
	Workflow    string         `json:"workflow"`
	Node        string         `json:"node"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type ErrorLogRepositoryInterface interface {
	Insert(ctx context.Context, e *ErrorLog) error
	ListRecent(ctx context.Context, limit int) ([]*ErrorLog, error)
}
