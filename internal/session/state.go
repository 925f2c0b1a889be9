// Package session holds per-browser application state: chat history, the
// active model, stored API keys and the dark-mode flag.
//
// State is a value. Every setter returns a new State and leaves the receiver
// untouched, so a snapshot handed to a template or encoder can never change
// underneath it. Store keeps one State per session id and serializes
// updates.
package session

import (
	"slices"

	"github.com/RichardoC/coding-agent/internal/catalog"
	"github.com/RichardoC/coding-agent/internal/models"
)

type State struct {
	history  []models.ChatMessage
	model    string
	apiKeys  models.APIKeys
	darkMode bool
}

func NewState() State {
	return State{model: catalog.DefaultModel}
}

func (s State) History() []models.ChatMessage { return cloneHistory(s.history) }
func (s State) Len() int                       { return len(s.history) }
func (s State) Model() string                  { return s.model }
func (s State) APIKeys() models.APIKeys        { return s.apiKeys }
func (s State) DarkMode() bool                 { return s.darkMode }

// AppendMessage adds msg to the end of the history.
func (s State) AppendMessage(msg models.ChatMessage) State {
	msg.Attachments = slices.Clone(msg.Attachments)
	next := make([]models.ChatMessage, len(s.history), len(s.history)+1)
	copy(next, s.history)
	s.history = append(next, msg)
	return s
}

// ReplaceHistory swaps the whole history, as when an archived chat is loaded.
func (s State) ReplaceHistory(history []models.ChatMessage) State {
	s.history = cloneHistory(history)
	return s
}

func (s State) ClearHistory() State {
	s.history = nil
	return s
}

func (s State) WithModel(model string) State {
	s.model = model
	return s
}

func (s State) WithAPIKeys(keys models.APIKeys) State {
	s.apiKeys = keys
	return s
}

func (s State) ToggleDarkMode() State {
	s.darkMode = !s.darkMode
	return s
}

// Snapshot is the JSON view of a State. API keys are masked.
type Snapshot struct {
	ChatHistory  []models.ChatMessage `json:"chatHistory"`
	CurrentModel string               `json:"currentModel"`
	APIKeys      models.APIKeys       `json:"apiKeys"`
	DarkMode     bool                 `json:"darkMode"`
}

func (s State) Snapshot() Snapshot {
	history := s.History()
	if history == nil {
		history = []models.ChatMessage{}
	}
	return Snapshot{
		ChatHistory:  history,
		CurrentModel: s.model,
		APIKeys:      s.apiKeys.Masked(),
		DarkMode:     s.darkMode,
	}
}

func cloneHistory(h []models.ChatMessage) []models.ChatMessage {
	if h == nil {
		return nil
	}
	out := make([]models.ChatMessage, len(h))
	for i, m := range h {
		m.Attachments = slices.Clone(m.Attachments)
		out[i] = m
	}
	return out
}
