// Package call drives the live-call page: it records audio from a
// microphone, turns a finished recording into a transcript and answers it.
//
// The controller walks idle -> recording -> stopped -> processing -> idle.
// A denied microphone request moves it to error; from there Start may be
// retried. The microphone stream is released on every Stop and on Close,
// whatever state the controller is in.
package call

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopped    State = "stopped"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// MicrophoneErrorMessage is what the page shows when access is refused.
const MicrophoneErrorMessage = "Unable to access microphone. Please check your browser permissions."

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrInvalidTransition = errors.New("invalid call state transition")
	ErrClosed            = errors.New("call closed")
)

// Microphone hands out an audio stream. Open fails with ErrPermissionDenied
// when the user refuses access.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture. Chunks delivers recorded audio in order and is
// closed by the stream once Close has been called.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Turn is one exchange of a call.
type Turn struct {
	Transcript string `json:"transcript"`
	Response   string `json:"response"`
	AudioBytes int    `json:"audioBytes"`
}

type Controller struct {
	mic         Microphone
	transcriber Transcriber
	responder   Responder

	mu       sync.Mutex
	state    State
	errMsg   string
	stream   Stream
	chunks   [][]byte
	drained  chan struct{}
	opening  bool
	closed   bool
	onChange func(State)
}

func NewController(mic Microphone, tr Transcriber, resp Responder) *Controller {
	return &Controller{
		mic:         mic,
		transcriber: tr,
		responder:   resp,
		state:       StateIdle,
	}
}

// OnStateChange registers fn to be called after every transition. fn runs
// without the controller lock held.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the user-facing message for the error state, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Start asks for the microphone and begins recording.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opening || (c.state != StateIdle && c.state != StateError) {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, st)
	}
	c.opening = true
	c.mu.Unlock()

	stream, err := c.mic.Open(ctx)
	if err != nil {
		c.mu.Lock()
		c.opening = false
		if errors.Is(err, ErrPermissionDenied) {
			c.errMsg = MicrophoneErrorMessage
		} else {
			c.errMsg = err.Error()
		}
		c.mu.Unlock()
		c.setState(StateError)
		return fmt.Errorf("failed to open microphone: %w", err)
	}

	c.mu.Lock()
	c.opening = false
	if c.closed {
		c.mu.Unlock()
		_ = stream.Close()
		return ErrClosed
	}
	c.stream = stream
	c.chunks = nil
	c.errMsg = ""
	c.drained = make(chan struct{})
	go c.collect(stream.Chunks(), c.drained)
	c.mu.Unlock()

	c.setState(StateRecording)
	return nil
}

func (c *Controller) collect(in <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for chunk := range in {
		c.mu.Lock()
		c.chunks = append(c.chunks, chunk)
		c.mu.Unlock()
	}
}

// Stop ends the recording, releases the microphone and processes the
// captured audio into a Turn.
func (c *Controller) Stop(ctx context.Context) (Turn, error) {
	c.mu.Lock()
	if c.state != StateRecording || c.stream == nil {
		st := c.state
		c.mu.Unlock()
		return Turn{}, fmt.Errorf("%w: stop from %s", ErrInvalidTransition, st)
	}
	stream, drained := c.stream, c.drained
	c.stream = nil
	c.mu.Unlock()

	closeErr := stream.Close()
	<-drained

	c.mu.Lock()
	audio := bytes.Join(c.chunks, nil)
	c.chunks = nil
	c.mu.Unlock()
	c.setState(StateStopped)

	if closeErr != nil {
		return c.fail(fmt.Errorf("failed to release microphone: %w", closeErr))
	}

	c.setState(StateProcessing)
	transcript, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return c.fail(fmt.Errorf("failed to transcribe audio: %w", err))
	}
	response, err := c.responder.Respond(ctx, transcript)
	if err != nil {
		return c.fail(fmt.Errorf("failed to get AI response: %w", err))
	}

	c.setState(StateIdle)
	return Turn{Transcript: transcript, Response: response, AudioBytes: len(audio)}, nil
}

func (c *Controller) fail(err error) (Turn, error) {
	c.mu.Lock()
	c.errMsg = err.Error()
	c.mu.Unlock()
	c.setState(StateError)
	return Turn{}, err
}

// Close releases the microphone if it is held. The controller cannot be
// started again afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stream, drained := c.stream, c.drained
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}
	err := stream.Close()
	<-drained
	c.setState(StateIdle)
	return err
}
