package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/coding-agent/internal/config"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/RichardoC/coding-agent/internal/simulate"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type Service struct {
	llm   llms.Model
	delay time.Duration
}

// New builds the response service for the configured backend. The canned
// backend is the default; "openai" talks to any OpenAI-compatible endpoint.
func New(cfg config.LLMConfig, delay time.Duration) (*Service, error) {
	switch cfg.Backend {
	case config.BackendCanned, "":
		return NewWithModel(CannedModel{}, delay), nil
	case config.BackendOpenAI:
		llm, err := openai.New(
			openai.WithToken(cfg.Token),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai backend: %w", err)
		}
		return NewWithModel(llm, delay), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func NewWithModel(model llms.Model, delay time.Duration) *Service {
	return &Service{llm: model, delay: delay}
}

// Respond answers text, optionally in the light of earlier turns.
func (s *Service) Respond(ctx context.Context, text string, history []models.ContextMessage) (string, error) {
	if text == "" {
		return "", errors.New("empty prompt")
	}
	if err := simulate.Latency(ctx, s.delay); err != nil {
		return "", err
	}

	messages := make([]llms.MessageContent, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llms.TextParts(roleType(m.Role), m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))

	resp, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

func roleType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleUser:
		return llms.ChatMessageTypeHuman
	default:
		return llms.ChatMessageTypeSystem
	}
}
