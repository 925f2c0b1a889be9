package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/RichardoC/coding-agent/internal/models"
	"go.uber.org/zap"
)

const (
	errNoText             = "No text provided"
	errAIResponse         = "Failed to get AI response"
	errNoAudio            = "No audio file provided"
	errTranscriptionFails = "Failed to transcribe audio"
)

type GeminiRequest struct {
	Text    string                  `json:"text"`
	Context []models.ContextMessage `json:"context,omitempty"`
}

type GeminiResponse struct {
	Text string `json:"text"`
}

type TranscribeResponse struct {
	Transcript string `json:"transcript"`
}

// HandleGemini answers a prompt with a canned (or configured) response.
// An unreadable body is reported as a generation failure, not a bad request.
func (h *Handler) HandleGemini(w http.ResponseWriter, r *http.Request) {
	var req GeminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode gemini request", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, errAIResponse)
		return
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, errNoText)
		return
	}

	text, err := h.llm.Respond(r.Context(), req.Text, req.Context)
	if err != nil {
		h.logger.Error("Failed to generate response",
			zap.Error(err),
			zap.Int("contextMessages", len(req.Context)))
		h.writeError(w, http.StatusInternalServerError, errAIResponse)
		return
	}

	h.writeJSON(w, http.StatusOK, GeminiResponse{Text: text})
}

// HandleTranscribe accepts a multipart "audio" field and returns a canned
// transcript. The audio itself is read and discarded.
func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.logger.Error("Failed to parse transcription form", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, errTranscriptionFails)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		h.writeError(w, http.StatusBadRequest, errNoAudio)
		return
	}
	if err != nil {
		h.logger.Error("Failed to open audio part", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, errTranscriptionFails)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read audio", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, errTranscriptionFails)
		return
	}

	transcript, err := h.transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		h.logger.Error("Failed to transcribe audio",
			zap.Error(err),
			zap.String("fileName", header.Filename),
			zap.Int("bytes", len(audio)))
		h.writeError(w, http.StatusInternalServerError, errTranscriptionFails)
		return
	}

	h.writeJSON(w, http.StatusOK, TranscribeResponse{Transcript: transcript})
}
