package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/RichardoC/coding-agent/internal/call"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Largest audio chunk or control frame accepted from the page.
	maxMessageSize = 1 << 20

	tickPeriod = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// CallEvent is a control frame sent by the live-call page. Audio travels in
// binary frames.
type CallEvent struct {
	Type    string `json:"type"`              // start, stop, end
	Granted *bool  `json:"granted,omitempty"` // start: did the browser grant the microphone
	Save    bool   `json:"save,omitempty"`    // stop: append the turn to the chat history
}

// CallMessage is pushed to the page.
type CallMessage struct {
	Type     string `json:"type"` // state, transcript, response, error, tick, ended
	State    string `json:"state,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type callClient struct {
	h         *Handler
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	gone      chan struct{}
	mic       *call.RemoteMicrophone
	ctrl      *call.Controller
	sessionID string
	started   time.Time
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// sessionResponder answers call transcripts with the session's chat so far
// as context.
type sessionResponder struct {
	h         *Handler
	sessionID string
}

func (s sessionResponder) Respond(ctx context.Context, text string) (string, error) {
	state, err := s.h.sessions.Get(s.sessionID)
	if err != nil {
		return "", err
	}
	return s.h.llm.Respond(ctx, text, contextOf(state.History()))
}

func contextOf(history []models.ChatMessage) []models.ContextMessage {
	out := make([]models.ContextMessage, 0, len(history))
	for _, m := range history {
		out = append(out, models.ContextMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// ServeCall upgrades to the live-call socket and drives a call.Controller
// from the page's events.
func (h *Handler) ServeCall(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	header := http.Header{}
	if cookie := w.Header().Values("Set-Cookie"); len(cookie) > 0 {
		header["Set-Cookie"] = cookie
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("Failed to upgrade call socket", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	mic := call.NewRemoteMicrophone()
	c := &callClient{
		h:         h,
		conn:      conn,
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
		gone:      make(chan struct{}),
		mic:       mic,
		sessionID: id,
		started:   time.Now(),
		logger:    h.logger.With(zap.String("session", id)),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.ctrl = call.NewController(mic, h.transcriber, sessionResponder{h: h, sessionID: id})
	c.ctrl.OnStateChange(func(s call.State) {
		c.push(CallMessage{Type: "state", State: string(s)})
	})

	c.logger.Info("Call started")
	go c.writePump()
	c.readPump()
}

func (c *callClient) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("Call socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if !c.mic.Push(data) {
				c.logger.Debug("Dropped audio chunk outside a recording", zap.Int("bytes", len(data)))
			}
		case websocket.TextMessage:
			var ev CallEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				c.logger.Warn("Failed to decode call event", zap.Error(err))
				continue
			}
			if !c.handleEvent(ev) {
				return
			}
		}
	}
}

// handleEvent reacts to one control frame and reports whether the call
// goes on.
func (c *callClient) handleEvent(ev CallEvent) bool {
	switch ev.Type {
	case "start":
		c.mic.SetPermission(ev.Granted == nil || *ev.Granted)
		if err := c.ctrl.Start(c.ctx); err != nil {
			msg := c.ctrl.Err()
			if errors.Is(err, call.ErrInvalidTransition) || msg == "" {
				msg = err.Error()
			}
			c.push(CallMessage{Type: "error", Message: msg})
		}
	case "stop":
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.finishTurn(ev.Save)
		}()
	case "end":
		if err := c.ctrl.Close(); err != nil {
			c.logger.Warn("Failed to release microphone", zap.Error(err))
		}
		c.push(CallMessage{Type: "ended", Duration: call.FormatDuration(time.Since(c.started))})
		return false
	default:
		c.push(CallMessage{Type: "error", Message: "unknown event " + ev.Type})
	}
	return true
}

func (c *callClient) finishTurn(save bool) {
	turn, err := c.ctrl.Stop(c.ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("Call turn failed", zap.Error(err))
			c.push(CallMessage{Type: "error", Message: err.Error()})
		}
		return
	}

	if save {
		now := time.Now().UTC()
		_, _, err := c.h.sessions.Update(c.sessionID, func(s session.State) session.State {
			return s.
				AppendMessage(models.ChatMessage{Role: models.RoleUser, Content: turn.Transcript, Timestamp: now}).
				AppendMessage(models.ChatMessage{Role: models.RoleAssistant, Content: turn.Response, Timestamp: now})
		})
		if err != nil {
			c.logger.Warn("Failed to save call turn", zap.Error(err))
		}
	}

	c.push(CallMessage{Type: "transcript", Text: turn.Transcript})
	c.push(CallMessage{Type: "response", Text: turn.Response})
}

// push queues a message for the writer. It gives up once the call is over
// or the writer has gone.
func (c *callClient) push(msg CallMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	case <-c.gone:
	}
}

func (c *callClient) shutdown() {
	c.cancel()
	if err := c.ctrl.Close(); err != nil {
		c.logger.Warn("Failed to release microphone", zap.Error(err))
	}
	c.wg.Wait()
	close(c.done)
	c.logger.Info("Call ended", zap.Duration("duration", time.Since(c.started)))
}

func (c *callClient) writePump() {
	ping := time.NewTicker(pingPeriod)
	tick := time.NewTicker(tickPeriod)
	defer func() {
		ping.Stop()
		tick.Stop()
		c.conn.Close()
		close(c.gone)
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-tick.C:
			data, _ := json.Marshal(CallMessage{Type: "tick", Duration: call.FormatDuration(time.Since(c.started))})
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// Flush what is already queued, then say goodbye.
			for {
				select {
				case message := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
