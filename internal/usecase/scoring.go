package usecase

import (
	"unicode/utf8"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

var projectTypeWeight = map[string]int{
	entity.ProjectRenovation:   15,
	entity.ProjectIsolation:    12,
	entity.ProjectInstallation: 10,
	entity.ProjectReparation:   8,
	entity.ProjectEntretien:    5,
	entity.ProjectAutre:        3,
}

// EstimateScore is the offline rule-based score used when the AI is unavailable.
func EstimateScore(l *entity.Lead) int {
	score := 30

	if l.BudgetEstime != nil {
		switch b := *l.BudgetEstime; {
		case b >= 20000:
			score += 25
		case b >= 10000:
			score += 20
		case b >= 5000:
			score += 15
		default:
			score += 5
		}
	}

	if l.Surface != nil {
		switch s := *l.Surface; {
		case s >= 150:
			score += 15
		case s >= 100:
			score += 10
		case s >= 50:
			score += 5
		}
	}

	if w, ok := projectTypeWeight[l.TypeProjet]; ok {
		score += w
	} else {
		score += 5
	}

	switch l.Delai {
	case entity.DelaiUrgent:
		score += 15
	case entity.DelaiUneDeuxSem, entity.DelaiUnMois:
		score += 10
	}

	if l.Telephone != "" {
		score += 5
	}
	if l.HasFullAddress() {
		score += 5
	}
	if utf8.RuneCountInString(l.Description) > 50 {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// FallbackQualification is stored when the AI call fails, flagged for manual review.
func FallbackQualification(l *entity.Lead, reason string) entity.Qualification {
	return entity.Qualification{
		Score:          EstimateScore(l),
		Urgence:        entity.UrgenceMoyenne,
		Recommandation: "Revérifier manuellement - " + reason,
		Segments:       []string{"a_verifier"},
		Fallback:       true,
	}.Clamp()
}
