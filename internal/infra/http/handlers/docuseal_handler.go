package handlers

import (
	"net/http"

	"github.com/Momo-444/toitureai-api/internal/usecase"
)

type DocuSealHandler struct {
	Process *usecase.ProcessSignatureUseCase
}

func NewDocuSealHandler(process *usecase.ProcessSignatureUseCase) *DocuSealHandler {
	return &DocuSealHandler{Process: process}
}

// Handle acknowledges with a plain "OK" so DocuSeal stops retrying. Technical failures
// are already in the error log and surface as a generic 500.
func (h *DocuSealHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event usecase.DocuSealEvent
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.Process.Execute(r.Context(), event); err != nil {
		if usecase.IsDomainError(err) {
			writeError(w, r, err)
			return
		}
		writeInternal(w)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
