package api

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"

	"github.com/RichardoC/coding-agent/internal/db"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatOnce(t *testing.T, env *testEnv, text string) {
	t.Helper()
	ct, body := multipartBody(t, part{field: "text", data: []byte(text)})
	resp, data := env.do(t, http.MethodPost, "/api/session/messages", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func TestHistories_Disabled(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/api/histories", "/api/histories/x", "/api/histories/search?q=a"} {
		resp, data := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
		assert.Equal(t, errArchiveDisabled, decode[errorResponse](t, data).Error)
	}
}

func TestHistories_SaveListLoadDelete(t *testing.T) {
	env := newTestEnv(t, true)

	resp, _ := env.do(t, http.MethodPost, "/api/histories", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.doJSON(t, http.MethodPut, "/api/session/model", SetModelRequest{Provider: "claude"})
	chatOnce(t, env, "How do I write a Dockerfile?")

	resp, data := env.do(t, http.MethodPost, "/api/histories", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	saved := decode[models.ArchivedHistory](t, data)
	assert.Contains(t, saved.Title, " - Docker")
	assert.Equal(t, "claude:claude-3-opus-20240229", saved.Model)

	_, data = env.do(t, http.MethodGet, "/api/histories", "", nil)
	list := decode[[]models.ArchivedHistory](t, data)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	resp, data = env.do(t, http.MethodGet, "/api/histories/search?q=dockerfile", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]db.SearchResult](t, data)
	require.Len(t, results, 1)
	assert.Equal(t, saved.ID, results[0].History.ID)

	resp, _ = env.do(t, http.MethodGet, "/api/histories/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// a new chat with another model, then load the archived one back
	env.do(t, http.MethodDelete, "/api/session/history?archive=false", "", nil)
	env.doJSON(t, http.MethodPut, "/api/session/model", SetModelRequest{Provider: "openai"})

	resp, data = env.do(t, http.MethodPost, "/api/histories/"+saved.ID+"/load", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	snap := decode[session.Snapshot](t, data)
	assert.Len(t, snap.ChatHistory, 2)
	assert.Equal(t, "claude:claude-3-opus-20240229", snap.CurrentModel)

	resp, _ = env.do(t, http.MethodDelete, "/api/histories/"+saved.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/histories/"+saved.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/histories/"+saved.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearHistory_ArchivesFirst(t *testing.T) {
	env := newTestEnv(t, true)

	// clearing an empty chat archives nothing
	_, data := env.do(t, http.MethodDelete, "/api/session/history", "", nil)
	assert.Empty(t, decode[ClearHistoryResponse](t, data).ArchivedID)

	chatOnce(t, env, "first question")
	resp, data := env.do(t, http.MethodDelete, "/api/session/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ClearHistoryResponse](t, data)
	require.NotEmpty(t, got.ArchivedID)
	assert.Empty(t, got.State.ChatHistory)

	resp, data = env.do(t, http.MethodGet, "/api/histories/"+got.ArchivedID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archived := decode[models.ArchivedHistory](t, data)
	require.Len(t, archived.Messages, 2)
	assert.Equal(t, "first question", archived.Messages[0].Content)
}

func TestClearHistory_ArchivedAttachmentsSurvive(t *testing.T) {
	env := newTestEnv(t, true)

	ct, body := multipartBody(t,
		part{field: "text", data: []byte("what is in this screenshot")},
		part{field: "files", fileName: "shot.png", contentType: "image/png", data: []byte("\x89PNG")},
	)
	resp, data := env.do(t, http.MethodPost, "/api/session/messages", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	preview := decode[SendMessageResponse](t, data).UserMessage.Attachments[0].Data

	resp, data = env.do(t, http.MethodDelete, "/api/session/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archivedID := decode[ClearHistoryResponse](t, data).ArchivedID
	require.NotEmpty(t, archivedID)

	// the live upload is released with the chat
	resp, _ = env.do(t, http.MethodGet, preview, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, data = env.do(t, http.MethodGet, "/api/histories/"+archivedID, "", nil)
	archived := decode[models.ArchivedHistory](t, data)
	require.Len(t, archived.Messages[0].Attachments, 1)
	assert.True(t, strings.HasPrefix(archived.Messages[0].Attachments[0].Data, "data:image/png;base64,"))

	resp, data = env.do(t, http.MethodPost, "/api/histories/"+archivedID+"/load", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	loaded := decode[session.Snapshot](t, data).ChatHistory[0].Attachments
	require.Len(t, loaded, 1)
	assert.Equal(t, "shot.png", loaded[0].FileName)
	assert.True(t, strings.HasPrefix(loaded[0].Data, "/uploads/"))

	resp, got := env.do(t, http.MethodGet, loaded[0].Data, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("\x89PNG"), got)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestHistories_SharedAcrossSessions(t *testing.T) {
	env := newTestEnv(t, true)
	chatOnce(t, env, "How do I write a Dockerfile?")
	resp, data := env.do(t, http.MethodPost, "/api/histories", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decode[models.ArchivedHistory](t, data)

	// a second browser sees and may load the same archive
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &testEnv{server: env.server, client: &http.Client{Jar: jar}}

	_, data = other.do(t, http.MethodGet, "/api/histories", "", nil)
	require.Len(t, decode[[]models.ArchivedHistory](t, data), 1)

	resp, data = other.do(t, http.MethodPost, "/api/histories/"+saved.ID+"/load", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[session.Snapshot](t, data).ChatHistory, 2)
	assert.Equal(t, 2, env.sessions.Len())
}
