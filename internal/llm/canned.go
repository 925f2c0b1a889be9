package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var ErrNoPrompt = errors.New("no human message in request")

// CannedModel is an llms.Model that answers from the Rules table instead of
// calling a provider. Only the most recent human message is considered.
type CannedModel struct{}

var _ llms.Model = CannedModel{}

func (CannedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt, ok := lastHumanText(messages)
	if !ok {
		return nil, ErrNoPrompt
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    Select(prompt),
			StopReason: "stop",
		}},
	}, nil
}

func (m CannedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func lastHumanText(messages []llms.MessageContent) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		var sb strings.Builder
		for _, part := range messages[i].Parts {
			if tc, ok := part.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
		return sb.String(), true
	}
	return "", false
}
