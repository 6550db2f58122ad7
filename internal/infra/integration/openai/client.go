package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

const (
	qualifyTemperature = 0.5
	qualifyMaxTokens   = 200
	devisTemperature   = 0.3
	devisMaxTokens     = 1500
	maxDevisLines      = 30
)

var ErrEmptyCompletion = errors.New("openai returned no content")

// Client talks to the chat completions endpoint. It implements both
// usecase.Qualifier and usecase.DevisLineGenerator.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) Qualify(ctx context.Context, lead *entity.Lead) (entity.Qualification, error) {
	prompt := fmt.Sprintf(qualificationUserPrompt,
		lead.Nom, lead.Prenom, lead.Email, lead.Telephone, lead.TypeProjet,
		orUnknown(lead.Surface), orUnknown(lead.BudgetEstime), lead.Delai,
		orText(lead.Adresse, "Non spécifié"), lead.CodePostal, lead.Ville,
		orText(lead.Description, "Aucune description"),
	)

	content, err := c.complete(ctx, qualificationSystemPrompt, prompt, qualifyTemperature, qualifyMaxTokens)
	if err != nil {
		return entity.Qualification{}, err
	}

	var parsed qualificationResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return entity.Qualification{}, fmt.Errorf("decode qualification: %w", err)
	}

	return entity.Qualification{
		Score:          int(math.Round(parsed.Score)),
		Urgence:        parsed.Urgence,
		Recommandation: parsed.Recommandation,
		Segments:       parsed.Segments,
		Raw:            content,
	}, nil
}

// GenerateDevisLines asks for priced quote lines. Lines that fail validation are dropped.
func (c *Client) GenerateDevisLines(ctx context.Context, lead *entity.Lead) ([]entity.LigneDevis, string, error) {
	prompt := fmt.Sprintf(devisUserPrompt,
		lead.TypeProjet, orText(formatIntPtr(lead.Surface), "non specifiee"),
		orText(formatIntPtr(lead.BudgetEstime), "n/a"), orText(lead.Description, "n/a"),
	)

	content, err := c.complete(ctx, devisSystemPrompt, prompt, devisTemperature, devisMaxTokens)
	if err != nil {
		return nil, "", err
	}

	var parsed devisLinesResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, "", fmt.Errorf("decode devis lines: %w", err)
	}

	lignes := make([]entity.LigneDevis, 0, len(parsed.Lignes))
	for _, l := range parsed.Lignes {
		if len(lignes) == maxDevisLines {
			break
		}
		ligne, err := entity.NewLigneDevis(l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT)
		if err != nil {
			continue
		}
		lignes = append(lignes, ligne)
	}
	return lignes, strings.TrimSpace(parsed.Notes), nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func formatIntPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func orUnknown(p *int) string {
	return orText(formatIntPtr(p), "Non spécifié")
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
