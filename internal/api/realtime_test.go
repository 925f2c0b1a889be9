package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/RichardoC/coding-agent/internal/call"
	"github.com/RichardoC/coding-agent/internal/llm"
	"github.com/RichardoC/coding-agent/internal/speech"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialCall(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	// pick up the session cookie over plain HTTP first
	env.do(t, http.MethodGet, "/api/session", "", nil)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/call"
	dialer := websocket.Dialer{Jar: env.client.Jar, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev CallEvent) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil collects messages, skipping ticks, until one of type want.
func readUntil(t *testing.T, conn *websocket.Conn, want string) []CallMessage {
	t.Helper()
	var got []CallMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg CallMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "tick" {
			continue
		}
		got = append(got, msg)
		if msg.Type == want {
			return got
		}
	}
}

func TestCall_RecordTranscribeRespond(t *testing.T) {
	env := newTestEnv(t, false)
	conn := dialCall(t, env)

	sendEvent(t, conn, CallEvent{Type: "start"})
	msgs := readUntil(t, conn, "state")
	assert.Equal(t, string(call.StateRecording), msgs[0].State)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-1")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-2")))
	sendEvent(t, conn, CallEvent{Type: "stop", Save: true})

	msgs = readUntil(t, conn, "response")
	var states []string
	var transcript, response string
	for _, m := range msgs {
		switch m.Type {
		case "state":
			states = append(states, m.State)
		case "transcript":
			transcript = m.Text
		case "response":
			response = m.Text
		}
	}
	assert.Equal(t, []string{"stopped", "processing", "idle"}, states)
	assert.Contains(t, speech.Sentences, transcript)
	assert.Equal(t, llm.Select(transcript), response)

	sendEvent(t, conn, CallEvent{Type: "end"})
	msgs = readUntil(t, conn, "ended")
	assert.Regexp(t, `^\d\d:\d\d$`, msgs[len(msgs)-1].Duration)

	// the saved turn shows up in the chat history of the same session
	resp, data := env.do(t, http.MethodGet, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), response[:20])
	assert.Equal(t, 1, env.sessions.Len())
}

func TestCall_MicrophoneDenied(t *testing.T) {
	env := newTestEnv(t, false)
	conn := dialCall(t, env)

	denied := false
	sendEvent(t, conn, CallEvent{Type: "start", Granted: &denied})
	msgs := readUntil(t, conn, "error")
	require.Len(t, msgs, 2)
	assert.Equal(t, string(call.StateError), msgs[0].State)
	assert.Equal(t, call.MicrophoneErrorMessage, msgs[1].Message)

	// stop without recording is refused but the call goes on
	sendEvent(t, conn, CallEvent{Type: "stop"})
	msgs = readUntil(t, conn, "error")
	assert.Contains(t, msgs[len(msgs)-1].Message, "invalid call state transition")

	granted := true
	sendEvent(t, conn, CallEvent{Type: "start", Granted: &granted})
	msgs = readUntil(t, conn, "state")
	assert.Equal(t, string(call.StateRecording), msgs[0].State)
}
