package llm

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/vietddude/packup/internal/infra/fetch/provider"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Gemini completes through the Gemini generate content API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingKey
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }

// Complete folds system messages into the system instruction and sends the
// rest as user text.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	var system, user []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
		} else {
			user = append(user, m.Content)
		}
	}

	gc := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(req.Temperature),
		CandidateCount: 1,
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(strings.Join(user, "\n\n")), gc)
	if err != nil {
		return "", classifyGemini(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return provider.ClassifyStatus("gemini", apiErr.Code, nil, []byte(apiErr.Message))
	}
	return provider.Transient("gemini", err)
}
