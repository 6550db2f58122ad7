package openai

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type qualificationResponse struct {
	Score          float64  `json:"score"`
	Urgence        string   `json:"urgence"`
	Recommandation string   `json:"recommandation"`
	Segments       []string `json:"segments"`
}

type devisLinesResponse struct {
	Lignes []struct {
		Designation    string  `json:"designation"`
		Quantite       float64 `json:"quantite"`
		Unite          string  `json:"unite"`
		PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	} `json:"lignes"`
	Notes string `json:"notes"`
}
