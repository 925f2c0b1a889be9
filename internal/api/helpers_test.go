package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/RichardoC/coding-agent/internal/config"
	"github.com/RichardoC/coding-agent/internal/db"
	"github.com/RichardoC/coding-agent/internal/history"
	"github.com/RichardoC/coding-agent/internal/llm"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/speech"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	handler  *Handler
	server   *httptest.Server
	client   *http.Client
	sessions *session.Store
	uploads  *uploads.Store
}

func newTestEnv(t *testing.T, withArchive bool) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Delays = config.DelayConfig{}

	svc := Services{
		Sessions:    session.NewStore(),
		Uploads:     uploads.NewStore(),
		LLM:         llm.NewWithModel(llm.CannedModel{}, 0),
		Transcriber: speech.NewSeededTranscriber(0, 7),
	}
	if withArchive {
		database, err := db.New(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		svc.Archive = history.NewArchive(database)
	}

	h := NewHandler(svc, cfg, zap.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(Chain(Recovery(zap.NewNop()), Logging(zap.NewNop()))(mux))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		handler:  h,
		server:   srv,
		client:   &http.Client{Jar: jar},
		sessions: svc.Sessions,
		uploads:  svc.Uploads,
	}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return e.do(t, method, path, "application/json", body)
}

type part struct {
	field, fileName, contentType string
	data                         []byte
}

// multipartBody builds a form; parts with a fileName become file parts.
func multipartBody(t *testing.T, parts ...part) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.fileName == "" {
			require.NoError(t, mw.WriteField(p.field, string(p.data)))
			continue
		}
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + p.field + `"; filename="` + p.fileName + `"`}
		if p.contentType != "" {
			h["Content-Type"] = []string{p.contentType}
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
