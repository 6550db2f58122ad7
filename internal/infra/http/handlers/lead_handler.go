package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/infra/http/middleware"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

type LeadHandler struct {
	Ingest      *usecase.IngestLeadUseCase
	Manage      *usecase.ManageLeadsUseCase
	rateLimiter *RateLimiter
}

func NewLeadHandler(ingest *usecase.IngestLeadUseCase, manage *usecase.ManageLeadsUseCase, limiter *RateLimiter) *LeadHandler {
	return &LeadHandler{
		Ingest:      ingest,
		Manage:      manage,
		rateLimiter: limiter,
	}
}

// Webhook ingests a landing page submission.
func (h *LeadHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if h.rateLimiter != nil && !h.rateLimiter.Allow(clientIP) {
		middleware.RecordLeadIngested("rate_limited")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Status:  "error",
			Code:    "RATE_LIMITED",
			Message: "Trop de requêtes. Veuillez réessayer dans une minute.",
		})
		return
	}

	var input usecase.LeadWebhookInput
	if err := decodeJSON(w, r, &input); err != nil {
		middleware.RecordLeadIngested("invalid")
		writeError(w, r, err)
		return
	}
	input.IPAddress = clientIP
	input.UserAgent = r.UserAgent()

	out, err := h.Ingest.Execute(r.Context(), input)
	if err != nil {
		middleware.RecordLeadIngested(ingestResult(err))
		writeError(w, r, err)
		return
	}

	if out.Duplicate {
		middleware.RecordLeadIngested("duplicate")
		writeJSON(w, http.StatusOK, out)
		return
	}
	middleware.RecordLeadIngested("created")
	writeJSON(w, http.StatusCreated, out)
}

func ingestResult(err error) string {
	if usecase.IsDomainError(err) {
		return "invalid"
	}
	return "error"
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Manage.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "lead": lead})
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	leads, err := h.Manage.List(r.Context(), entity.LeadFilter{
		Limit:  limit,
		Offset: offset,
		Status: q.Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(leads), "leads": leads})
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch entity.LeadPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := h.Manage.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "lead": lead})
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Manage.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Lead supprimé", "lead_id": id})
}

func (h *LeadHandler) Hot(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r.URL.Query().Get("threshold"), "threshold")
	if err != nil {
		writeError(w, r, err)
		return
	}

	leads, err := h.Manage.Hot(r.Context(), threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(leads), "leads": leads})
}

// queryInt parses an optional integer query parameter; empty means zero.
func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, usecase.NewValidationError([]usecase.ValidationError{{Field: field, Message: "must be a positive integer"}})
	}
	return n, nil
}
