package handlers

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Momo-444/toitureai-api/internal/infra/http/middleware"
	"github.com/Momo-444/toitureai-api/internal/log"
	"github.com/Momo-444/toitureai-api/internal/signing"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

var thankYouPage = template.Must(template.New("merci").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Merci - ToitureAI</title>
<style>
body{font-family:Arial,sans-serif;background:#f4f6f8;color:#1f2937;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}
.card{background:#fff;border-radius:12px;padding:40px;max-width:480px;text-align:center;box-shadow:0 4px 16px rgba(0,0,0,.08)}
a{display:inline-block;margin-top:24px;padding:12px 28px;background:#e85d04;color:#fff;border-radius:6px;text-decoration:none;font-weight:bold}
</style>
</head>
<body>
<div class="card">
<h1>Merci pour votre intérêt !</h1>
<p>Notre équipe a bien noté votre demande et vous recontactera très rapidement pour organiser la visite de votre toiture.</p>
<a href="{{.}}">Retour sur ToitureAI</a>
</div>
</body>
</html>
`))

type TrackingHandler struct {
	Track       *usecase.TrackLeadUseCase
	RedirectURL string
	WebsiteURL  string
}

func NewTrackingHandler(track *usecase.TrackLeadUseCase, redirectURL, websiteURL string) *TrackingHandler {
	return &TrackingHandler{Track: track, RedirectURL: redirectURL, WebsiteURL: websiteURL}
}

func (h *TrackingHandler) TrackLead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := usecase.TrackLeadInput{
		LeadID:    q.Get("lead_id"),
		EventType: q.Get("type"),
		Signature: q.Get("s"),
	}

	if !signing.IsEventType(input.EventType) {
		writeError(w, r, usecase.NewValidationError([]usecase.ValidationError{
			{Field: "type", Message: "must be open or click"},
		}))
		return
	}

	_, err := h.Track.Execute(r.Context(), input)
	middleware.RecordTrackingEvent(input.EventType, validHit(err))

	if input.EventType == signing.EventOpen {
		if err != nil {
			log.Warn("open tracking not recorded",
				slog.String("lead_id", input.LeadID),
				slog.String("error", err.Error()),
			)
		}
		writePixel(w)
		return
	}

	if err != nil {
		if isSignatureError(err) || isValidationError(err) {
			writeError(w, r, err)
			return
		}
		log.Error("click tracking not recorded",
			slog.String("lead_id", input.LeadID),
			slog.String("error", err.Error()),
		)
	}

	if h.RedirectURL != "" {
		http.Redirect(w, r, h.RedirectURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	thankYouPage.Execute(w, h.WebsiteURL)
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(transparentGIF)
}

// validHit reports whether a hit carried a well-formed, correctly signed link for
// a known lead. Storage failures do not make the hit invalid.
func validHit(err error) bool {
	return err == nil || !(isSignatureError(err) || usecase.IsDomainError(err))
}

func isSignatureError(err error) bool {
	var se *usecase.SignatureError
	return errors.As(err, &se)
}

func isValidationError(err error) bool {
	var de *usecase.DomainError
	return errors.As(err, &de) && de.Code == usecase.CodeValidation
}
