// Package speech provides the simulated speech-to-text backend. Audio bytes
// are accepted but never inspected.
package speech

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/RichardoC/coding-agent/internal/simulate"
)

// Sentences is the fixed pool of transcripts.
var Sentences = []string{
	"Can you help me with a React component for form validation?",
	"I'm trying to implement a state management solution for my Next.js app.",
	"How would I optimize a recursive function in JavaScript?",
	"What's the best way to handle authentication in a Next.js application?",
	"Can you explain how context API works in React?",
	"What's the difference between useMemo and useCallback hooks?",
	"How can I implement server-side rendering in Next.js?",
	"What are the best practices for handling API requests in React?",
}

type Transcriber struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTranscriber(delay time.Duration) *Transcriber {
	return &Transcriber{
		delay: delay,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// NewSeededTranscriber gives a reproducible sequence of picks.
func NewSeededTranscriber(delay time.Duration, seed uint64) *Transcriber {
	return &Transcriber{delay: delay, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Transcribe waits out the simulated latency and returns a random sentence.
func (t *Transcriber) Transcribe(ctx context.Context, _ []byte) (string, error) {
	if err := simulate.Latency(ctx, t.delay); err != nil {
		return "", err
	}
	t.mu.Lock()
	i := t.rng.IntN(len(Sentences))
	t.mu.Unlock()
	return Sentences[i], nil
}
