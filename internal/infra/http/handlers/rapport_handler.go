package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Momo-444/toitureai-api/internal/usecase"
)

type RapportHandler struct {
	Reports *usecase.GenerateReportUseCase
}

func NewRapportHandler(reports *usecase.GenerateReportUseCase) *RapportHandler {
	return &RapportHandler{Reports: reports}
}

func (h *RapportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var input usecase.GenerateReportInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(w, r, err)
			return
		}
	}

	report, err := h.Reports.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "Rapport " + report.Periode.Title() + " généré",
		"rapport": report,
	})
}

func (h *RapportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "rapport": report})
}

func (h *RapportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.Reports.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(list), "rapports": list})
}
