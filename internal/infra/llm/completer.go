// Package llm drafts itineraries and chat replies through a pluggable
// language-model backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/packup/internal/core/config"
)

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call.
type Request struct {
	Messages    []Message
	JSON        bool // ask the backend for a bare JSON object
	Temperature float32
	MaxTokens   int
	OperationID string
}

// Completer is a language-model backend.
type Completer interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrMissingKey = errors.New("llm api key missing")
	ErrNoContent  = errors.New("llm returned no content")
)

// NewCompleter builds the backend named in cfg. It returns (nil, nil) for the
// mock backend and when no key is configured, which puts the Drafter in mock
// mode.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == "mock" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	switch backend {
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	case "gemini":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
