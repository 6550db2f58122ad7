package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

func completionHandler(t *testing.T, content string, seen *chatRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}
}

func testLead() *entity.Lead {
	surface, budget := 120, 15000
	return &entity.Lead{
		Nom: "Dupont", Prenom: "Jean", Email: "jean@example.com", Telephone: "0612345678",
		TypeProjet: entity.ProjectRenovation, Surface: &surface, BudgetEstime: &budget,
		Delai: entity.DelaiUrgent, Ville: "Metz", CodePostal: "57000",
	}
}

func TestQualify(t *testing.T) {
	var seen chatRequest
	content := `{"score": 87.6, "urgence": "haute", "recommandation": "Rappeler sous 2h", "segments": ["particulier","gros_budget"]}`
	srv := httptest.NewServer(completionHandler(t, content, &seen))
	defer srv.Close()

	q, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").Qualify(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, 88, q.Score)
	assert.Equal(t, "haute", q.Urgence)
	assert.Equal(t, []string{"particulier", "gros_budget"}, q.Segments)
	assert.Equal(t, content, q.Raw)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, 0.5, seen.Temperature)
	assert.Equal(t, 200, seen.MaxTokens)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "Surface: 120 m²")
	assert.Contains(t, seen.Messages[1].Content, "Description: Aucune description")
}

func TestQualifyInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "Le lead semble bon.", nil))
	defer srv.Close()

	_, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").Qualify(context.Background(), testLead())

	assert.ErrorContains(t, err, "decode qualification")
}

func TestQualifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").Qualify(context.Background(), testLead())

	assert.EqualError(t, err, "openai status 429: Rate limit reached")
}

func TestQualifyEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").Qualify(context.Background(), testLead())

	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGenerateDevisLinesDropsInvalidLines(t *testing.T) {
	var seen chatRequest
	content := `{"lignes": [
		{"designation": "Tuiles mécaniques", "quantite": 120, "unite": "m²", "prix_unitaire_ht": 45},
		{"designation": "", "quantite": 1, "unite": "forfait", "prix_unitaire_ht": 100},
		{"designation": "Échafaudage", "quantite": 1, "unite": "forfait", "prix_unitaire_ht": 900}
	], "notes": "  Visite technique conseillée. "}`
	srv := httptest.NewServer(completionHandler(t, content, &seen))
	defer srv.Close()

	lignes, notes, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").GenerateDevisLines(context.Background(), testLead())

	require.NoError(t, err)
	require.Len(t, lignes, 2)
	assert.Equal(t, "m2", lignes[0].Unite)
	assert.Equal(t, 5400.0, lignes[0].TotalHT)
	assert.Equal(t, "Visite technique conseillée.", notes)
	assert.Equal(t, 0.3, seen.Temperature)
	assert.Equal(t, 1500, seen.MaxTokens)
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "{}", nil))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("sk-test", srv.URL, "gpt-4o-mini").Qualify(ctx, testLead())

	assert.ErrorIs(t, err, context.Canceled)
}
