package usecase

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

var textPolicy = bluemonday.StrictPolicy()

// PlainText strips markup from free text typed by a visitor. The result is stored
// unescaped; templates escape it again on output.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var e164Phone = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

const maxEmailLength = 255

func ValidateLeadWebhookInput(input LeadWebhookInput) []ValidationError {
	var errors []ValidationError

	if !input.RGPD {
		errors = append(errors, ValidationError{"rgpd", "consentement obligatoire"})
	}

	errors = checkLength(errors, "nom", input.Nom, 2, 100, true)
	errors = checkLength(errors, "prenom", input.Prenom, 0, 100, false)

	if strings.TrimSpace(input.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else {
		errors = checkEmail(errors, input.Email)
	}

	if strings.TrimSpace(input.Telephone) == "" {
		errors = append(errors, ValidationError{"telephone", "is required"})
	} else if phone := entity.NormalizePhone(input.Telephone); len(phone) < 10 || len(phone) > 20 || !e164Phone.MatchString(phone) {
		errors = append(errors, ValidationError{"telephone", "must be a valid phone number"})
	}

	if strings.TrimSpace(input.TypeDeProjet) == "" {
		errors = append(errors, ValidationError{"typeDeProjet", "is required"})
	}

	errors = checkLength(errors, "adresse", input.Adresse, 5, 500, true)
	errors = checkLength(errors, "ville", input.Ville, 2, 100, true)
	errors = checkLength(errors, "codePostal", input.CodePostal, 5, 10, true)

	if utf8.RuneCountInString(input.Description) > 2000 {
		errors = append(errors, ValidationError{"description", "must not exceed 2000 characters"})
	}

	if entity.QuantityTooLarge(string(input.Surface)) {
		errors = append(errors, ValidationError{"surface", fmt.Sprintf("must not exceed %d", entity.MaxQuantity)})
	}
	if entity.QuantityTooLarge(string(input.Budget)) {
		errors = append(errors, ValidationError{"budget", fmt.Sprintf("must not exceed %d", entity.MaxQuantity)})
	}

	return errors
}

func ValidateGenerateDevisInput(input GenerateDevisInput) []ValidationError {
	var errors []ValidationError

	if _, err := uuid.Parse(input.LeadID); err != nil {
		errors = append(errors, ValidationError{"lead_id", "must be a valid UUID"})
	}

	for i, l := range input.LignesDevisCustom {
		if _, err := entity.NewLigneDevis(l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT); err != nil {
			errors = append(errors, ValidationError{fmt.Sprintf("lignes_devis_custom[%d]", i), err.Error()})
		}
	}

	if input.BudgetNegocie != nil && *input.BudgetNegocie <= 0 {
		errors = append(errors, ValidationError{"budget_negocie", "must be > 0"})
	}

	if utf8.RuneCountInString(input.NotesDevisCustom) > 2000 {
		errors = append(errors, ValidationError{"notes_devis_custom", "must not exceed 2000 characters"})
	}

	if p := input.Params; p != nil {
		if p.TVA != nil && (*p.TVA < 0 || *p.TVA > 100) {
			errors = append(errors, ValidationError{"params.tva", "must be between 0 and 100"})
		}
		if p.ValiditeJours != nil && (*p.ValiditeJours < 7 || *p.ValiditeJours > 180) {
			errors = append(errors, ValidationError{"params.validite_jours", "must be between 7 and 180"})
		}
	}

	return errors
}

var devisStatuses = map[string]bool{
	entity.DevisStatusBrouillon: true,
	entity.DevisStatusEnvoye:    true,
	entity.DevisStatusSigne:     true,
	entity.DevisStatusPaye:      true,
	entity.DevisStatusRefuse:    true,
}

func ValidateDevisPatch(p entity.DevisPatch) []ValidationError {
	var errors []ValidationError
	if p.IsEmpty() {
		errors = append(errors, ValidationError{"body", "aucun champ valide à mettre à jour"})
	}
	if p.Statut != nil && !devisStatuses[*p.Statut] {
		errors = append(errors, ValidationError{"statut", "must be brouillon, envoye, signe, paye or refuse"})
	}
	if p.ValiditeJours != nil && (*p.ValiditeJours < 7 || *p.ValiditeJours > 180) {
		errors = append(errors, ValidationError{"validite_jours", "must be between 7 and 180"})
	}
	return errors
}

func ValidateLeadPatch(p entity.LeadPatch) []ValidationError {
	var errors []ValidationError
	if p.IsEmpty() {
		return append(errors, ValidationError{"body", "aucun champ valide à mettre à jour"})
	}
	if p.Nom != nil {
		errors = checkLength(errors, "nom", *p.Nom, 2, 100, true)
	}
	if p.Prenom != nil {
		errors = checkLength(errors, "prenom", *p.Prenom, 0, 100, false)
	}
	if p.Email != nil {
		errors = checkEmail(errors, *p.Email)
	}
	if p.Telephone != nil {
		if phone := entity.NormalizePhone(*p.Telephone); len(phone) > 20 || !e164Phone.MatchString(phone) {
			errors = append(errors, ValidationError{"telephone", "must be a valid phone number"})
		}
	}
	if p.Adresse != nil {
		errors = checkLength(errors, "adresse", *p.Adresse, 5, 500, true)
	}
	if p.Ville != nil {
		errors = checkLength(errors, "ville", *p.Ville, 2, 100, true)
	}
	if p.CodePostal != nil {
		errors = checkLength(errors, "code_postal", *p.CodePostal, 5, 10, true)
	}
	if p.Statut != nil {
		errors = checkLength(errors, "statut", *p.Statut, 1, 50, true)
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > 2000 {
		errors = append(errors, ValidationError{"description", "must not exceed 2000 characters"})
	}
	if p.NotesDevisCustom != nil && utf8.RuneCountInString(*p.NotesDevisCustom) > 2000 {
		errors = append(errors, ValidationError{"notes_devis_custom", "must not exceed 2000 characters"})
	}
	for _, v := range []*int{p.Surface, p.BudgetEstime, p.BudgetNegocie} {
		if v != nil && (*v < 1 || *v > entity.MaxQuantity) {
			errors = append(errors, ValidationError{"surface/budget", fmt.Sprintf("must be between 1 and %d", entity.MaxQuantity)})
			break
		}
	}
	if p.LignesDevisCustom != nil {
		for i, l := range *p.LignesDevisCustom {
			if _, err := entity.NewLigneDevis(l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT); err != nil {
				errors = append(errors, ValidationError{fmt.Sprintf("lignes_devis_custom[%d]", i), err.Error()})
			}
		}
	}
	return errors
}

func checkLength(errors []ValidationError, field, value string, min, max int, required bool) []ValidationError {
	v := strings.TrimSpace(value)
	n := utf8.RuneCountInString(v)
	switch {
	case n == 0 && required:
		return append(errors, ValidationError{field, "is required"})
	case n == 0:
		return errors
	case n < min:
		return append(errors, ValidationError{field, fmt.Sprintf("must have at least %d characters", min)})
	case n > max:
		return append(errors, ValidationError{field, fmt.Sprintf("must not exceed %d characters", max)})
	}
	return errors
}

func checkEmail(errors []ValidationError, email string) []ValidationError {
	switch {
	case utf8.RuneCountInString(strings.TrimSpace(email)) > maxEmailLength:
		return append(errors, ValidationError{"email", fmt.Sprintf("must not exceed %d characters", maxEmailLength)})
	case !isValidEmail(email):
		return append(errors, ValidationError{"email", "is invalid"})
	}
	return errors
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return false
	}
	// ParseAddress accepts "Name <a@b>"; only a bare address is a valid field value.
	return addr.Address == strings.TrimSpace(email) && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".")
}
