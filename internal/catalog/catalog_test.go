package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersOrder(t *testing.T) {
	ps := Providers()
	require.Len(t, ps, 3)
	assert.Equal(t, "gemini", ps[0].Name)
	assert.Equal(t, "claude", ps[1].Name)
	assert.Equal(t, "openai", ps[2].Name)

	ps[0].Models[0] = "mutated"
	assert.Equal(t, DefaultModel, Providers()[0].Models[0])
}

func TestFirstModel(t *testing.T) {
	m, err := FirstModel("claude")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-opus-20240229", m)

	_, err = FirstModel("mistral")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestFormat(t *testing.T) {
	id, err := Format("openai", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o", id)

	_, err = Format("openai", "gemini-pro")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		id       string
		provider string
		model    string
	}{
		{"gemini:gemini-1.5-pro", "gemini", "gemini-1.5-pro"},
		{"gemini-2.0-flash", "gemini", "gemini-2.0-flash"},
		{"gpt-4o", "openai", "gpt-4o"},
		{"llama3.1:8b", "", "llama3.1:8b"},
	}
	for _, tt := range tests {
		p, m := Split(tt.id)
		assert.Equal(t, tt.provider, p, tt.id)
		assert.Equal(t, tt.model, m, tt.id)
	}
}
