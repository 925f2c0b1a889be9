package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	got  []byte
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.got = audio
	return f.text, f.err
}

type echoResponder struct{ err error }

func (e echoResponder) Respond(_ context.Context, text string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "re: " + text, nil
}

type trackingStream struct {
	*ChunkStream
	closes int
	mu     sync.Mutex
}

func (s *trackingStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return s.ChunkStream.Close()
}

type trackingMic struct {
	err     error
	streams []*trackingStream
}

func (m *trackingMic) Open(context.Context) (Stream, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := &trackingStream{ChunkStream: NewChunkStream(8)}
	m.streams = append(m.streams, s)
	return s, nil
}

func TestController_FullCycle(t *testing.T) {
	mic := &trackingMic{}
	tr := &fakeTranscriber{text: "hello"}
	c := NewController(mic, tr, echoResponder{})

	var mu sync.Mutex
	var seen []State
	c.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.Equal(t, StateIdle, c.State())
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StateRecording, c.State())

	s := mic.streams[0]
	require.NoError(t, s.Push([]byte("ab")))
	require.NoError(t, s.Push([]byte("cd")))

	turn, err := c.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "hello", turn.Transcript)
	assert.Equal(t, "re: hello", turn.Response)
	assert.Equal(t, 4, turn.AudioBytes)
	assert.Equal(t, []byte("abcd"), tr.got)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, s.closes)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateRecording, StateStopped, StateProcessing, StateIdle}, seen)
}

func TestController_PermissionDenied(t *testing.T) {
	mic := &trackingMic{err: ErrPermissionDenied}
	c := NewController(mic, &fakeTranscriber{}, echoResponder{})

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, MicrophoneErrorMessage, c.Err())

	// the user may try again
	mic.err = nil
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StateRecording, c.State())
	assert.Empty(t, c.Err())
}

func TestController_InvalidTransitions(t *testing.T) {
	c := NewController(&trackingMic{}, &fakeTranscriber{}, echoResponder{})

	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrInvalidTransition)
}

func TestController_StopReleasesOnProcessingFailure(t *testing.T) {
	mic := &trackingMic{}
	boom := errors.New("boom")
	c := NewController(mic, &fakeTranscriber{err: boom}, echoResponder{})

	require.NoError(t, c.Start(context.Background()))
	_, err := c.Stop(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, 1, mic.streams[0].closes)
}

func TestController_ResponderFailure(t *testing.T) {
	boom := errors.New("no answer")
	c := NewController(&trackingMic{}, &fakeTranscriber{text: "x"}, echoResponder{err: boom})

	require.NoError(t, c.Start(context.Background()))
	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, c.State())
}

func TestController_CloseReleasesMicrophone(t *testing.T) {
	mic := &trackingMic{}
	c := NewController(mic, &fakeTranscriber{}, echoResponder{})

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Close())

	assert.Equal(t, 1, mic.streams[0].closes)
	assert.ErrorIs(t, c.Start(context.Background()), ErrClosed)
	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// closing twice is harmless
	assert.NoError(t, c.Close())
}

func TestController_CloseWhenIdle(t *testing.T) {
	c := NewController(&trackingMic{}, &fakeTranscriber{}, echoResponder{})
	assert.NoError(t, c.Close())
}

func TestRemoteMicrophone(t *testing.T) {
	mic := NewRemoteMicrophone()
	assert.False(t, mic.Push([]byte("early")))

	mic.SetPermission(false)
	_, err := mic.Open(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	mic.SetPermission(true)
	s, err := mic.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, mic.Push([]byte("x")))
	assert.Equal(t, []byte("x"), <-s.Chunks())

	require.NoError(t, s.Close())
	assert.False(t, mic.Push([]byte("late")))
}

func TestChunkStream_PushAfterClose(t *testing.T) {
	s := NewChunkStream(1)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Push([]byte("x")), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "00:59", FormatDuration(59*time.Second))
	assert.Equal(t, "01:05", FormatDuration(65*time.Second+300*time.Millisecond))
	assert.Equal(t, "120:00", FormatDuration(2*time.Hour))
	assert.Equal(t, "00:00", FormatDuration(-time.Second))
}
