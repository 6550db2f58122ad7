package usecase

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeCaptcha    = "CAPTCHA_FAILED"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"

	CodeUpstream = "UPSTREAM_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodePanic    = "PANIC"
)

// DomainError is a caller mistake: bad input, missing resource, forbidden transition.
// Its message is safe to return to the client.
type DomainError struct {
	Code    string
	Message string
	Fields  []ValidationError
}

func (e *DomainError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

func NewValidationError(fields []ValidationError) *DomainError {
	return &DomainError{Code: CodeValidation, Message: "Données invalides", Fields: fields}
}

func NewNotFoundError(message string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message}
}

// TechnicalError wraps an infrastructure failure. Its message never reaches the client.
type TechnicalError struct {
	Code    string
	Service string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func NewUpstreamError(service string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeUpstream, Service: service, Message: service + " call failed", Err: err}
}

func NewDatabaseError(op string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeDatabase, Service: "database", Message: op + " failed", Err: err}
}

// SignatureError means a tracking link did not verify. Nothing was mutated.
type SignatureError struct {
	EventType string
}

func (e *SignatureError) Error() string {
	return "invalid tracking signature"
}

// AuthenticationError is raised when the shared webhook secret is missing or wrong.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}
