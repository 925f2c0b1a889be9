// Package catalog lists the selectable providers and models and handles the
// "provider:model" identifiers stored in session state.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const DefaultModel = "gemini-2.0-flash"

var ErrUnknownModel = errors.New("unknown provider or model")

type Provider struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Models []string `json:"models"`
	Info   string   `json:"info"`
	Docs   string   `json:"docs"`
}

var providers = []Provider{
	{
		Name:   "gemini",
		Label:  "Gemini",
		Models: []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro", "gemini-pro-vision"},
		Info:   "Gemini is Google's family of multimodal AI models, capable of understanding text, code, audio, images, and video.",
		Docs:   "https://ai.google.dev/models/gemini",
	},
	{
		Name:   "claude",
		Label:  "Claude",
		Models: []string{"claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
		Info:   "Claude is a family of AI assistants created by Anthropic to be helpful, harmless, and honest.",
		Docs:   "https://www.anthropic.com/claude",
	},
	{
		Name:   "openai",
		Label:  "Openai",
		Models: []string{"gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"},
		Info:   "GPT (Generative Pre-trained Transformer) models are a series of large language models developed by OpenAI.",
		Docs:   "https://platform.openai.com/docs/models",
	},
}

// Providers returns a copy of the catalog in display order.
func Providers() []Provider {
	out := make([]Provider, len(providers))
	for i, p := range providers {
		p.Models = slices.Clone(p.Models)
		out[i] = p
	}
	return out
}

func Lookup(name string) (Provider, bool) {
	for _, p := range providers {
		if p.Name == name {
			p.Models = slices.Clone(p.Models)
			return p, true
		}
	}
	return Provider{}, false
}

// FirstModel is the model selected when the user switches provider.
func FirstModel(provider string) (string, error) {
	p, ok := Lookup(provider)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, provider)
	}
	return p.Models[0], nil
}

// Format validates the pair against the catalog and joins it.
func Format(provider, model string) (string, error) {
	p, ok := Lookup(provider)
	if !ok || !slices.Contains(p.Models, model) {
		return "", fmt.Errorf("%w: %s:%s", ErrUnknownModel, provider, model)
	}
	return provider + ":" + model, nil
}

// Split breaks a model string into provider and model. A bare model name
// (the initial default has no provider prefix) is resolved by searching the
// catalog.
func Split(id string) (provider, model string) {
	if p, m, ok := strings.Cut(id, ":"); ok {
		if _, known := Lookup(p); known {
			return p, m
		}
	}
	for _, p := range providers {
		if slices.Contains(p.Models, id) {
			return p.Name, id
		}
	}
	return "", id
}

// DisplayName is the model part of an identifier, for headers.
func DisplayName(id string) string {
	_, m := Split(id)
	return m
}
