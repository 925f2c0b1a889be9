package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/RichardoC/coding-agent/internal/config"
	"github.com/RichardoC/coding-agent/internal/history"
	"github.com/RichardoC/coding-agent/internal/llm"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/speech"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"go.uber.org/zap"
)

// Services bundles what the handlers work on. Archive may be nil, in which
// case the history endpoints answer 503.
type Services struct {
	Sessions    *session.Store
	Uploads     *uploads.Store
	LLM         *llm.Service
	Transcriber *speech.Transcriber
	Archive     *history.Archive
}

type Handler struct {
	sessions    *session.Store
	uploads     *uploads.Store
	llm         *llm.Service
	transcriber *speech.Transcriber
	archive     *history.Archive
	delays      config.DelayConfig
	maxUpload   int64
	logger      *zap.Logger
}

func NewHandler(svc Services, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		sessions:    svc.Sessions,
		uploads:     svc.Uploads,
		llm:         svc.LLM,
		transcriber: svc.Transcriber,
		archive:     svc.Archive,
		delays:      cfg.Delays,
		maxUpload:   cfg.Server.MaxUploadBytes(),
		logger:      logger,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/gemini", h.HandleGemini)
	mux.HandleFunc("POST /api/transcribe", h.HandleTranscribe)

	mux.HandleFunc("GET /api/session", h.GetSession)
	mux.HandleFunc("DELETE /api/session/history", h.ClearHistory)
	mux.HandleFunc("POST /api/session/messages", h.SendMessage)
	mux.HandleFunc("PUT /api/session/model", h.SetModel)
	mux.HandleFunc("PUT /api/session/keys", h.SaveKeys)
	mux.HandleFunc("POST /api/session/dark-mode", h.ToggleDarkMode)
	mux.HandleFunc("GET /api/models", h.ListModels)

	mux.HandleFunc("POST /api/uploads", h.CreateUploads)
	mux.HandleFunc("DELETE /api/uploads/{id}", h.DeleteUpload)
	mux.HandleFunc("GET "+uploads.PathPrefix+"{id}", h.ServeUpload)

	mux.HandleFunc("GET /api/histories", h.ListHistories)
	mux.HandleFunc("POST /api/histories", h.SaveHistory)
	mux.HandleFunc("GET /api/histories/search", h.SearchHistories)
	mux.HandleFunc("GET /api/histories/{id}", h.GetHistory)
	mux.HandleFunc("POST /api/histories/{id}/load", h.LoadHistory)
	mux.HandleFunc("DELETE /api/histories/{id}", h.DeleteHistory)

	mux.HandleFunc("GET /ws/call", h.ServeCall)
	mux.HandleFunc("GET /health", h.Health)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.Len(),
		"archive":  h.archive != nil,
	})
}

// PruneSessions drops sessions idle for longer than maxIdle together with
// their uploads and reports how many sessions went.
func (h *Handler) PruneSessions(maxIdle time.Duration) int {
	pruned := h.sessions.Prune(maxIdle)
	for _, id := range pruned {
		if n := h.uploads.RevokeOwner(id); n > 0 {
			h.logger.Debug("Released uploads of idle session", zap.String("session", id), zap.Int("count", n))
		}
	}
	return len(pruned)
}
