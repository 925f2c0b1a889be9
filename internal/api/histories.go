package api

import (
	"errors"
	"net/http"

	"github.com/RichardoC/coding-agent/internal/db"
	"github.com/RichardoC/coding-agent/internal/history"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"go.uber.org/zap"
)

const errArchiveDisabled = "History archive is disabled"

func (h *Handler) ListHistories(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	list, err := h.archive.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list histories",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Debug("Retrieved histories", zap.Int("count", len(list)))
	h.writeJSON(w, http.StatusOK, list)
}

// SaveHistory archives the caller's current chat without clearing it.
func (h *Handler) SaveHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	id := h.sessions.Resolve(w, r)
	state, err := h.sessions.Get(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	saved, err := h.archive.Save(r.Context(), h.archivable(state), state.Model())
	if errors.Is(err, history.ErrEmpty) {
		h.writeError(w, http.StatusBadRequest, "No chat history to save")
		return
	}
	if err != nil {
		h.logger.Error("Failed to save history", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	saved, ok := h.lookupHistory(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// LoadHistory replaces the caller's chat and model with an archived one.
func (h *Handler) LoadHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	saved, ok := h.lookupHistory(w, r)
	if !ok {
		return
	}

	id := h.sessions.Resolve(w, r)
	messages, err := h.restoreAttachments(id, saved.Messages)
	if errors.Is(err, uploads.ErrQuotaExceeded) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "Upload limit reached for this session")
		return
	}
	if err != nil {
		h.logger.Error("Failed to restore attachments", zap.Error(err), zap.String("history", saved.ID))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	_, after, err := h.sessions.Update(id, func(s session.State) session.State {
		s = s.ReplaceHistory(messages)
		if saved.Model != "" {
			s = s.WithModel(saved.Model)
		}
		return s
	})
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, after.Snapshot())
}

func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	err := h.archive.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "History not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete history", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SearchHistories(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	results, err := h.archive.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to search histories", zap.Error(err), zap.String("query", query))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) lookupHistory(w http.ResponseWriter, r *http.Request) (*models.ArchivedHistory, bool) {
	saved, err := h.archive.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "History not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get history", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return saved, true
}

// archivable returns the session's messages with upload previews replaced by
// the bytes they point at, so an archive never depends on live uploads.
func (h *Handler) archivable(state session.State) []models.ChatMessage {
	messages := state.History()
	for i := range messages {
		for j, a := range messages[i].Attachments {
			messages[i].Attachments[j] = h.uploads.Inline(a)
		}
	}
	return messages
}

// restoreAttachments turns inlined attachments back into uploads owned by
// owner. On failure nothing restored so far is kept.
func (h *Handler) restoreAttachments(owner string, messages []models.ChatMessage) ([]models.ChatMessage, error) {
	var restored []string
	for i := range messages {
		for j, a := range messages[i].Attachments {
			got, err := h.uploads.Restore(owner, a)
			if err != nil {
				for _, id := range restored {
					_ = h.uploads.Revoke(owner, id)
				}
				return nil, err
			}
			if got.Data != a.Data {
				restored = append(restored, uploads.IDFromURL(got.Data))
			}
			messages[i].Attachments[j] = got
		}
	}
	return messages, nil
}
