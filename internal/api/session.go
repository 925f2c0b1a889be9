package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/RichardoC/coding-agent/internal/catalog"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/simulate"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"go.uber.org/zap"
)

// ReplyText is the assistant's acknowledgement on the chat page.
func ReplyText(model string, attachments int) string {
	suffix := ""
	if attachments > 0 {
		suffix = fmt.Sprintf(" and %d attachment(s)", attachments)
	}
	return fmt.Sprintf("I'm the AI assistant using %s. I've received your message%s.", model, suffix)
}

type SendMessageResponse struct {
	UserMessage      models.ChatMessage `json:"userMessage"`
	AssistantMessage models.ChatMessage `json:"assistantMessage"`
	State            session.Snapshot   `json:"state"`
}

type SetModelRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type ClearHistoryResponse struct {
	ArchivedID string           `json:"archivedId,omitempty"`
	State      session.Snapshot `json:"state"`
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	state, err := h.sessions.Get(id)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err), zap.String("session", id))
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	h.writeJSON(w, http.StatusOK, state.Snapshot())
}

// ClearHistory starts a new chat. The finished chat is archived first when
// the archive is enabled, unless the request asks otherwise with
// ?archive=false.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)

	var archivedID string
	if h.archive != nil && r.URL.Query().Get("archive") != "false" {
		state, err := h.sessions.Get(id)
		if err == nil && state.Len() > 0 {
			saved, err := h.archive.Save(r.Context(), h.archivable(state), state.Model())
			if err != nil {
				h.logger.Error("Failed to archive chat before clearing",
					zap.Error(err),
					zap.String("session", id))
				h.writeError(w, http.StatusInternalServerError, "Failed to archive chat history")
				return
			}
			archivedID = saved.ID
		}
	}

	_, after, err := h.sessions.Update(id, session.State.ClearHistory)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	released := h.uploads.RevokeOwner(id)
	h.logger.Debug("Cleared chat history",
		zap.String("session", id),
		zap.Int("releasedUploads", released),
		zap.String("archivedId", archivedID))

	h.writeJSON(w, http.StatusOK, ClearHistoryResponse{ArchivedID: archivedID, State: after.Snapshot()})
}

// SendMessage takes a multipart form with "text", up to uploads.MaxFiles
// "files" and/or "upload" ids of earlier uploads, appends the user's
// message and, after the chat delay, the assistant's acknowledgement.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeError(w, http.StatusBadRequest, "Invalid message form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	text := strings.TrimSpace(r.FormValue("text"))

	var (
		fileHeaders []*multipart.FileHeader
		uploadIDs   []string
	)
	if r.MultipartForm != nil {
		fileHeaders = r.MultipartForm.File["files"]
		uploadIDs = r.MultipartForm.Value["upload"]
	}
	if len(fileHeaders)+len(uploadIDs) > uploads.MaxFiles {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d attachments are allowed", uploads.MaxFiles))
		return
	}
	if text == "" && len(fileHeaders) == 0 && len(uploadIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "Message text or an attachment is required")
		return
	}

	attachments := make([]models.Attachment, 0, len(fileHeaders)+len(uploadIDs))
	for _, uploadID := range uploadIDs {
		f, err := h.uploads.Get(uploadID)
		if err != nil || f.Owner != id {
			h.writeError(w, http.StatusBadRequest, "Unknown upload "+uploadID)
			return
		}
		attachments = append(attachments, f.Attachment())
	}
	var stored []uploads.File
	for _, fh := range fileHeaders {
		f, err := h.storeUpload(id, fh)
		if err != nil {
			for _, done := range stored {
				_ = h.uploads.Revoke(id, done.ID)
			}
			h.writeUploadError(w, fh.Filename, err)
			return
		}
		stored = append(stored, f)
		attachments = append(attachments, f.Attachment())
	}

	userMsg := models.ChatMessage{
		Role:        models.RoleUser,
		Content:     text,
		Timestamp:   time.Now().UTC(),
		Attachments: attachments,
	}
	if len(userMsg.Attachments) == 0 {
		userMsg.Attachments = nil
	}
	_, state, err := h.sessions.Update(id, func(s session.State) session.State {
		return s.AppendMessage(userMsg)
	})
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := simulate.Latency(r.Context(), h.delays.Chat()); err != nil {
		h.logger.Debug("Chat request cancelled before reply", zap.Error(err))
		return
	}

	reply := models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   ReplyText(state.Model(), len(attachments)),
		Timestamp: time.Now().UTC(),
	}
	_, state, err = h.sessions.Update(id, func(s session.State) session.State {
		return s.AppendMessage(reply)
	})
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	h.writeJSON(w, http.StatusOK, SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: reply,
		State:            state.Snapshot(),
	})
}

func (h *Handler) storeUpload(owner string, fh *multipart.FileHeader) (uploads.File, error) {
	if _, err := uploads.Classify(fh.Filename, fh.Header.Get("Content-Type")); err != nil {
		return uploads.File{}, err
	}
	src, err := fh.Open()
	if err != nil {
		return uploads.File{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return uploads.File{}, err
	}
	return h.uploads.Put(owner, fh.Filename, fh.Header.Get("Content-Type"), data)
}

// SetModel stores "provider:model". An empty model selects the provider's
// first one.
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)

	var req SetModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Model == "" {
		first, err := catalog.FirstModel(req.Provider)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Model = first
	}
	model, err := catalog.Format(req.Provider, req.Model)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, after, err := h.sessions.Update(id, func(s session.State) session.State {
		return s.WithModel(model)
	})
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, after.Snapshot())
}

// SaveKeysRequest updates the stored keys. A blank key leaves the stored one
// alone; Clear names the keys to remove, by their JSON field names.
type SaveKeysRequest struct {
	models.APIKeys
	Clear []string `json:"clear,omitempty"`
}

// SaveKeys merges the submitted API keys into the session after the
// simulated save delay. Only masked keys are ever sent back.
func (h *Handler) SaveKeys(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)

	var req SaveKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, name := range req.Clear {
		if !slices.Contains(apiKeyFields, name) {
			h.writeError(w, http.StatusBadRequest, "Unknown API key: "+name)
			return
		}
	}

	if err := simulate.Latency(r.Context(), h.delays.SaveKeys()); err != nil {
		return
	}

	_, after, err := h.sessions.Update(id, func(s session.State) session.State {
		return s.WithAPIKeys(mergeKeys(s.APIKeys(), req))
	})
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, after.Snapshot())
}

var apiKeyFields = []string{"googleApiKey", "anthropicApiKey", "openaiApiKey"}

func mergeKeys(current models.APIKeys, req SaveKeysRequest) models.APIKeys {
	set := func(dst *string, name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
		if slices.Contains(req.Clear, name) {
			*dst = ""
		}
	}
	set(&current.GoogleAPIKey, "googleApiKey", req.GoogleAPIKey)
	set(&current.AnthropicAPIKey, "anthropicApiKey", req.AnthropicAPIKey)
	set(&current.OpenAIAPIKey, "openaiApiKey", req.OpenAIAPIKey)
	return current
}

func (h *Handler) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	_, after, err := h.sessions.Update(id, session.State.ToggleDarkMode)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, after.Snapshot())
}

type ModelsResponse struct {
	Providers []catalog.Provider `json:"providers"`
	Current   string             `json:"current"`
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	state, _ := h.sessions.Get(id)
	h.writeJSON(w, http.StatusOK, ModelsResponse{
		Providers: catalog.Providers(),
		Current:   state.Model(),
	})
}
