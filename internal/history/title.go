// Package history archives finished chat sessions and names them.
package history

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RichardoC/coding-agent/internal/models"
)

const titleTimeLayout = "Monday, January 02, 2006 - 15:04"

var techTerms = []string{
	"AWS", "S3", "Python", "JavaScript", "SQL", "Docker", "Kubernetes",
	"ML", "API", "Django", "React", "Angular", "Vue", "Node.js", "FastAPI",
	"Flask", "Database", "Git", "DevOps", "Cloud",
}

var leadPhrases = []string{
	"how to", "create a", "build a", "implement", "design",
	"develop", "code for", "example of", "tutorial",
}

// Title names an archived chat after the topic of its first user message.
func Title(history []models.ChatMessage, now time.Time) string {
	stamp := now.Format(titleTimeLayout)
	fallback := stamp + " - Chat Session"
	if len(history) < 2 {
		return fallback
	}

	var first string
	for _, m := range history {
		if m.Role == models.RoleUser {
			first = m.Content
			break
		}
	}
	if first == "" {
		return fallback
	}
	return stamp + " - " + topic(first)
}

func topic(text string) string {
	lower := strings.ToLower(text)
	for _, term := range techTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return term
		}
	}

	// Offsets count runes so multibyte input is never cut mid-character.
	runes := []rune(text)
	for _, phrase := range leadPhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		start := min(utf8.RuneCountInString(lower[:idx])+len(phrase), len(runes))
		end := min(start+30, len(runes))
		snippet := strings.TrimSpace(string(runes[start:end]))
		if cut := strings.IndexAny(snippet, ".?!\n"); cut >= 0 {
			snippet = snippet[:cut]
		}
		return phrase + " " + snippet
	}

	words := strings.Fields(text)
	t := []rune(strings.Join(words[:min(7, len(words))], " "))
	if len(t) > 40 {
		return string(t[:37]) + "..."
	}
	return string(t)
}
