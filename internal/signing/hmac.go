// Package signing produces and checks the HMAC signatures embedded in email tracking links.
//
// A signature is hex(HMAC-SHA256(secret, leadID + eventType)). Nothing time-based is
// signed, so a link stays valid for as long as the secret is unchanged.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

const (
	EventOpen  = "open"
	EventClick = "click"

	TrackingPath = "/api/v1/tracking/track-lead"
)

type Signer struct {
	secret  []byte
	baseURL string
}

func NewSigner(secret, apiBaseURL string) *Signer {
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(apiBaseURL, "/"),
	}
}

// IsEventType reports whether t is a trackable event.
func IsEventType(t string) bool {
	return t == EventOpen || t == EventClick
}

func (s *Signer) Sign(leadID, eventType string) string {
	return hex.EncodeToString(s.mac(leadID, eventType))
}

// Verify fails closed: bad hex, unknown event types and empty inputs all return false.
func (s *Signer) Verify(leadID, eventType, signature string) bool {
	if leadID == "" || signature == "" || !IsEventType(eventType) || len(s.secret) == 0 {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(s.mac(leadID, eventType), got)
}

func (s *Signer) mac(leadID, eventType string) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(leadID))
	m.Write([]byte(eventType))
	return m.Sum(nil)
}

// TrackingURL builds the signed link for one event type.
func (s *Signer) TrackingURL(leadID, eventType string) string {
	return s.baseURL + TrackingPath +
		"?lead_id=" + url.QueryEscape(leadID) +
		"&type=" + url.QueryEscape(eventType) +
		"&s=" + s.Sign(leadID, eventType)
}

// TrackingURLs returns the click and open links for a lead.
func (s *Signer) TrackingURLs(leadID string) (clickURL, openURL string) {
	return s.TrackingURL(leadID, EventClick), s.TrackingURL(leadID, EventOpen)
}
