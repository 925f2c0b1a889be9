package call

import (
	"context"
	"sync"
)

// ChunkStream is a Stream fed by Push, used when audio arrives from
// somewhere else (a websocket, a test).
type ChunkStream struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func NewChunkStream(buffer int) *ChunkStream {
	return &ChunkStream{ch: make(chan []byte, buffer)}
}

func (s *ChunkStream) Chunks() <-chan []byte { return s.ch }

// Push queues a chunk. It returns ErrClosed once the stream is closed.
func (s *ChunkStream) Push(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.ch <- chunk
	return nil
}

func (s *ChunkStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// RemoteMicrophone stands in for a microphone that lives in the browser.
// The page reports whether getUserMedia was allowed; Open honours that and
// hands out a ChunkStream that the transport feeds.
type RemoteMicrophone struct {
	mu      sync.Mutex
	denied  bool
	current *ChunkStream
}

func NewRemoteMicrophone() *RemoteMicrophone { return &RemoteMicrophone{} }

// SetPermission records the browser's answer for the next Open.
func (m *RemoteMicrophone) SetPermission(granted bool) {
	m.mu.Lock()
	m.denied = !granted
	m.mu.Unlock()
}

func (m *RemoteMicrophone) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied {
		return nil, ErrPermissionDenied
	}
	m.current = NewChunkStream(64)
	return m.current, nil
}

// Push forwards a chunk to the open stream. Chunks arriving while nothing
// is recording are dropped.
func (m *RemoteMicrophone) Push(chunk []byte) bool {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		return false
	}
	return cur.Push(chunk) == nil
}
