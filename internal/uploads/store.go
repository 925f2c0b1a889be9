// Package uploads keeps chat attachments in memory and hands out preview
// URLs for them. A file lives until it is revoked or its owner is released.
package uploads

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/google/uuid"
)

const (
	MaxFiles   = 5
	PathPrefix = "/uploads/"
)

var (
	ErrNotFound        = errors.New("upload not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrQuotaExceeded   = errors.New("upload quota exceeded")
	ErrNotDataURL      = errors.New("not a base64 data URL")
)

var accepted = map[string]string{
	".png":  models.AttachmentImage,
	".jpg":  models.AttachmentImage,
	".jpeg": models.AttachmentImage,
	".gif":  models.AttachmentImage,
	".mp3":  models.AttachmentAudio,
	".wav":  models.AttachmentAudio,
	".ogg":  models.AttachmentAudio,
}

type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"fileName"`
	Type        string    `json:"type"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	PreviewURL  string    `json:"preview"`
	Owner       string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`

	data []byte
}

func (f File) Data() []byte { return f.data }

func (f File) Attachment() models.Attachment {
	return models.Attachment{Type: f.Type, Data: f.PreviewURL, FileName: f.Name}
}

// Classify maps a file name and declared content type to an attachment type.
// The content type wins when it names image/* or audio/*.
func Classify(name, contentType string) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AttachmentImage, nil
	case strings.HasPrefix(contentType, "audio/"):
		return models.AttachmentAudio, nil
	}
	if t, ok := accepted[strings.ToLower(filepath.Ext(name))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
}

type Store struct {
	mu    sync.RWMutex
	files map[string]File
	used  map[string]int64
	quota int64
}

// NewStore returns a store with no per-owner limit.
func NewStore() *Store {
	return NewStoreWithQuota(0)
}

// NewStoreWithQuota caps the bytes any one owner may hold at once. A quota of
// zero or less means no cap.
func NewStoreWithQuota(quota int64) *Store {
	return &Store{
		files: make(map[string]File),
		used:  make(map[string]int64),
		quota: quota,
	}
}

// Put stores data for owner and returns the wrapper with its preview URL.
func (s *Store) Put(owner, name, contentType string, data []byte) (File, error) {
	kind, err := Classify(name, contentType)
	if err != nil {
		return File{}, err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			contentType = byExt
		}
	}

	id := uuid.NewString()
	f := File{
		ID:          id,
		Name:        filepath.Base(name),
		Type:        kind,
		ContentType: contentType,
		Size:        len(data),
		PreviewURL:  PathPrefix + id,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
		data:        data,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 && s.used[owner]+int64(len(data)) > s.quota {
		return File{}, fmt.Errorf("%w: %s", ErrQuotaExceeded, owner)
	}
	s.files[id] = f
	s.used[owner] += int64(len(data))
	return f, nil
}

// Used reports how many bytes owner currently holds.
func (s *Store) Used(owner string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used[owner]
}

func (s *Store) release(f File) {
	delete(s.files, f.ID)
	s.used[f.Owner] -= int64(f.Size)
	if s.used[f.Owner] <= 0 {
		delete(s.used, f.Owner)
	}
}

func (s *Store) Get(id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

// Revoke releases a file. Only its owner may revoke it.
func (s *Store) Revoke(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok || f.Owner != owner {
		return ErrNotFound
	}
	s.release(f)
	return nil
}

// RevokeOwner releases every file held by owner.
func (s *Store) RevokeOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.files {
		if f.Owner == owner {
			s.release(f)
			n++
		}
	}
	return n
}

// Inline swaps a preview URL for a data URL carrying the file's bytes, so the
// attachment outlives the upload. Anything else is returned unchanged.
func (s *Store) Inline(a models.Attachment) models.Attachment {
	id := IDFromURL(a.Data)
	if id == "" {
		return a
	}
	f, err := s.Get(id)
	if err != nil {
		return a
	}
	a.Data = "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.data)
	return a
}

// Restore stores the bytes of a data URL attachment for owner and points the
// attachment at the new preview URL. Other attachments are returned unchanged.
func (s *Store) Restore(owner string, a models.Attachment) (models.Attachment, error) {
	if !strings.HasPrefix(a.Data, "data:") {
		return a, nil
	}
	contentType, data, err := decodeDataURL(a.Data)
	if err != nil {
		return a, err
	}
	f, err := s.Put(owner, a.FileName, contentType, data)
	if err != nil {
		return a, err
	}
	a.Data = f.PreviewURL
	return a, nil
}

func decodeDataURL(url string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	contentType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return contentType, data, nil
}

// IDFromURL extracts the id from a preview URL, or "" if it is not one.
func IDFromURL(url string) string {
	id, ok := strings.CutPrefix(url, PathPrefix)
	if !ok {
		return ""
	}
	return id
}
