package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Momo-444/toitureai-api/internal/usecase"
)

const (
	WorkflowUnhandled = "unhandled"
	NodeGlobalHandler = "global_handler"

	maxStackBytes = 4096
)

// ExecutionID copies the chi request id into the context value error logs read.
// Mount it after chimw.RequestID.
func ExecutionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = usecase.WithExecutionID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recoverer turns a panic into one error_logs row and a generic 500.
func Recoverer(recorder usecase.ErrorRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				if len(stack) > maxStackBytes {
					stack = stack[:maxStackBytes]
				}
				recorder.Record(r.Context(), WorkflowUnhandled, NodeGlobalHandler,
					&usecase.PanicError{Value: rec, Stack: stack},
					map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
						"panic":  fmt.Sprint(rec),
					})

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"message": "Une erreur interne s'est produite",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
