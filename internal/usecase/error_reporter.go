package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const maxStackBytes = 4096

type ctxKey int

const executionIDKey ctxKey = iota

// WithExecutionID attaches the request id that error logs are correlated with.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey, id)
}

func ExecutionID(ctx context.Context) string {
	id, _ := ctx.Value(executionIDKey).(string)
	return id
}

// ErrorReporter writes ErrorLog rows. It never fails the caller: a broken
// error_logs insert is only logged.
type ErrorReporter struct {
	repo    entity.ErrorLogRepositoryInterface
	logger  *slog.Logger
	onError func(workflow, node string)

	// OnUpstream, when set, is told which external service failed.
	OnUpstream func(service string)
}

func NewErrorReporter(repo entity.ErrorLogRepositoryInterface, onError func(workflow, node string)) *ErrorReporter {
	return &ErrorReporter{
		repo:    repo,
		logger:  log.WithComponent("error_reporter"),
		onError: onError,
	}
}

func (r *ErrorReporter) Record(ctx context.Context, workflow, node string, err error, details map[string]any) {
	if err == nil {
		return
	}

	d := make(map[string]any, len(details)+2)
	for k, v := range details {
		d[k] = v
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		d["code"] = te.Code
		d["service"] = te.Service
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		d["stack"] = truncate(string(pe.Stack), maxStackBytes)
	}

	entry := &entity.ErrorLog{
		Workflow:    workflow,
		Node:        node,
		Message:     truncate(err.Error(), 2000),
		Details:     d,
		ExecutionID: ExecutionID(ctx),
		CreatedAt:   time.Now(),
	}

	r.logger.Error("workflow error",
		slog.String("workflow", workflow),
		slog.String("node", node),
		slog.String("execution_id", entry.ExecutionID),
		slog.String("error", err.Error()),
	)
	if r.onError != nil {
		r.onError(workflow, node)
	}
	if te != nil && te.Code == CodeUpstream && r.OnUpstream != nil {
		r.OnUpstream(te.Service)
	}

	// The request may already be cancelled; the log row must still land.
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if insertErr := r.repo.Insert(insertCtx, entry); insertErr != nil {
		r.logger.Error("error log insert failed", slog.String("error", insertErr.Error()))
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
