package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/coding-agent/internal/db"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/google/uuid"
)

var ErrEmpty = errors.New("nothing to archive")

// Store is the persistence the archive needs. *db.Database implements it.
type Store interface {
	SaveHistory(ctx context.Context, h *models.ArchivedHistory) error
	ListHistories(ctx context.Context) ([]models.ArchivedHistory, error)
	GetHistory(ctx context.Context, id string) (*models.ArchivedHistory, error)
	DeleteHistory(ctx context.Context, id string) error
	SearchHistories(ctx context.Context, query string) ([]db.SearchResult, error)
}

type Archive struct {
	store Store
	now   func() time.Time
}

func NewArchive(store Store) *Archive {
	return &Archive{store: store, now: time.Now}
}

// Save archives a finished chat under a generated title.
func (a *Archive) Save(ctx context.Context, messages []models.ChatMessage, model string) (*models.ArchivedHistory, error) {
	if len(messages) == 0 {
		return nil, ErrEmpty
	}
	now := a.now()
	h := &models.ArchivedHistory{
		ID:        uuid.NewString(),
		Title:     Title(messages, now),
		Model:     model,
		CreatedAt: now.UTC(),
		Messages:  messages,
	}
	if err := a.store.SaveHistory(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to archive history: %w", err)
	}
	return h, nil
}

func (a *Archive) List(ctx context.Context) ([]models.ArchivedHistory, error) {
	return a.store.ListHistories(ctx)
}

func (a *Archive) Get(ctx context.Context, id string) (*models.ArchivedHistory, error) {
	return a.store.GetHistory(ctx, id)
}

func (a *Archive) Delete(ctx context.Context, id string) error {
	return a.store.DeleteHistory(ctx, id)
}

func (a *Archive) Search(ctx context.Context, query string) ([]db.SearchResult, error) {
	return a.store.SearchHistories(ctx, query)
}
