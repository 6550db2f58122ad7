package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/Momo-444/toitureai-api/internal/log"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookAuth rejects requests whose X-Webhook-Secret matches none of the given
// secrets. Empty secrets are ignored, so an unset optional secret never opens the door.
func WebhookAuth(secrets ...string) func(http.Handler) http.Handler {
	var accepted [][]byte
	for _, s := range secrets {
		if s != "" {
			accepted = append(accepted, []byte(s))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretMatches(r.Header.Get(WebhookSecretHeader), accepted) {
				log.Warn("webhook secret rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "unauthorized",
					"message": "Secret webhook invalide",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(given string, accepted [][]byte) bool {
	if given == "" {
		return false
	}
	match := 0
	for _, s := range accepted {
		match |= subtle.ConstantTimeCompare([]byte(given), s)
	}
	return match == 1
}
