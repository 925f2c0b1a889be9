package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/RichardoC/coding-agent/internal/uploads"
	"go.uber.org/zap"
)

// CreateUploads stores the "files" parts of a multipart form for later
// attachment and returns their preview URLs.
func (h *Handler) CreateUploads(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid upload form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "No files provided")
		return
	}
	if len(headers) > uploads.MaxFiles {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d attachments are allowed", uploads.MaxFiles))
		return
	}

	files := make([]uploads.File, 0, len(headers))
	for _, fh := range headers {
		f, err := h.storeUpload(id, fh)
		if err != nil {
			for _, done := range files {
				_ = h.uploads.Revoke(id, done.ID)
			}
			h.writeUploadError(w, fh.Filename, err)
			return
		}
		files = append(files, f)
	}

	h.writeJSON(w, http.StatusCreated, files)
}

func (h *Handler) writeUploadError(w http.ResponseWriter, fileName string, err error) {
	switch {
	case errors.Is(err, uploads.ErrUnsupportedType):
		h.writeError(w, http.StatusBadRequest, "Unsupported file type: "+fileName)
	case errors.Is(err, uploads.ErrQuotaExceeded):
		h.writeError(w, http.StatusRequestEntityTooLarge, "Upload limit reached for this session")
	default:
		h.logger.Error("Failed to store upload", zap.Error(err), zap.String("fileName", fileName))
		h.writeError(w, http.StatusInternalServerError, "Failed to store upload")
	}
}

// DeleteUpload revokes a preview, as when the user removes a pending file.
func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	if err := h.uploads.Revoke(id, r.PathValue("id")); err != nil {
		h.writeError(w, http.StatusNotFound, "Upload not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(w, r)
	f, err := h.uploads.Get(r.PathValue("id"))
	if err != nil || f.Owner != id {
		http.NotFound(w, r)
		return
	}
	if f.ContentType != "" {
		w.Header().Set("Content-Type", f.ContentType)
	}
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, f.Name, f.CreatedAt, bytes.NewReader(f.Data()))
}
