package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/infra/http/middleware"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

type DevisHandler struct {
	Generate *usecase.GenerateDevisUseCase
	Manage   *usecase.ManageDevisUseCase
}

func NewDevisHandler(generate *usecase.GenerateDevisUseCase, manage *usecase.ManageDevisUseCase) *DevisHandler {
	return &DevisHandler{Generate: generate, Manage: manage}
}

func (h *DevisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.GenerateDevisInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.Generate.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.RecordDevisGenerated(out.Source)
	writeJSON(w, http.StatusCreated, out)
}

func (h *DevisHandler) Get(w http.ResponseWriter, r *http.Request) {
	devis, err := h.Manage.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "devis": devis})
}

func (h *DevisHandler) ListByLead(w http.ResponseWriter, r *http.Request) {
	list, err := h.Manage.ListByLead(r.Context(), chi.URLParam(r, "lead_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(list), "devis": list})
}

func (h *DevisHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch entity.DevisPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	devis, err := h.Manage.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "devis": devis})
}

func (h *DevisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Manage.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Devis supprimé", "devis_id": id})
}
