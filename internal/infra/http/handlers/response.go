package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Momo-444/toitureai-api/internal/log"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

const maxBodyBytes = 1 << 20

const msgInternal = "Une erreur interne s'est produite"

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string       `json:"status"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads at most maxBodyBytes. Any failure is reported as a 400 validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &usecase.DomainError{Code: usecase.CodeValidation, Message: "JSON invalide"}
	}
	return nil
}

func writeInternal(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: msgInternal})
}

// writeError maps use case errors onto HTTP responses. Use cases have already written
// their ErrorLog rows, so unknown errors are only logged here.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		domain    *usecase.DomainError
		technical *usecase.TechnicalError
		signature *usecase.SignatureError
		auth      *usecase.AuthenticationError
	)

	switch {
	case errors.As(err, &auth):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Status: "unauthorized", Message: auth.Message})
	case errors.As(err, &domain):
		writeJSON(w, domainStatus(domain.Code), domainResponse(domain))
	case errors.As(err, &signature):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Status: "error", Code: "INVALID_SIGNATURE", Message: "Lien invalide",
		})
	case errors.As(err, &technical):
		status := http.StatusInternalServerError
		switch technical.Code {
		case usecase.CodeUpstream:
			status = http.StatusBadGateway
		case usecase.CodeDatabase:
			status = http.StatusServiceUnavailable
		}
		log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("service", technical.Service),
			slog.String("error", technical.Error()),
		)
		writeJSON(w, status, errorResponse{Status: "error", Code: technical.Code, Message: "Service temporairement indisponible"})
	default:
		log.Error("unhandled error",
			slog.String("path", r.URL.Path),
			slog.String("execution_id", usecase.ExecutionID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeInternal(w)
	}
}

func domainStatus(code string) int {
	switch code {
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func domainResponse(e *usecase.DomainError) errorResponse {
	resp := errorResponse{Status: "error", Code: e.Code, Message: e.Message}
	for _, f := range e.Fields {
		resp.Errors = append(resp.Errors, fieldError{Field: f.Field, Message: f.Message})
	}
	return resp
}
