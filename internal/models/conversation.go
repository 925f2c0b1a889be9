package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	AttachmentImage = "image"
	AttachmentAudio = "audio"
	AttachmentCode  = "code"
)

type Attachment struct {
	Type     string `json:"type"` // image, audio, or code
	Data     string `json:"data"` // preview URL or inline data
	FileName string `json:"fileName,omitempty"`
}

type ChatMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ContextMessage is the trimmed message shape accepted as conversation context.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type APIKeys struct {
	GoogleAPIKey    string `json:"googleApiKey"`
	AnthropicAPIKey string `json:"anthropicApiKey"`
	OpenAIAPIKey    string `json:"openaiApiKey"`
}

// Masked returns a copy safe to send to a browser: only the last four
// characters of each key survive.
func (k APIKeys) Masked() APIKeys {
	return APIKeys{
		GoogleAPIKey:    maskKey(k.GoogleAPIKey),
		AnthropicAPIKey: maskKey(k.AnthropicAPIKey),
		OpenAIAPIKey:    maskKey(k.OpenAIAPIKey),
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

type ArchivedHistory struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages,omitempty"`
}
