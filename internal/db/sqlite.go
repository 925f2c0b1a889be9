package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/coding-agent/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("history not found")

const schema = `
CREATE TABLE IF NOT EXISTS histories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    model TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS history_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    history_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    attachments TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (history_id) REFERENCES histories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS history_messages_history ON history_messages(history_id, position);

CREATE VIRTUAL TABLE IF NOT EXISTS history_fts USING fts4(
    content,
    history_id,
    tokenize=porter
);

-- Keep the FTS index in step with the message table
CREATE TRIGGER IF NOT EXISTS history_messages_ai AFTER INSERT ON history_messages BEGIN
    INSERT INTO history_fts(docid, content, history_id)
    VALUES (new.id, new.content, new.history_id);
END;

CREATE TRIGGER IF NOT EXISTS history_messages_ad AFTER DELETE ON history_messages BEGIN
    DELETE FROM history_fts WHERE docid = old.id;
END;`

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// SaveHistory stores h and all its messages in one transaction. CreatedAt is
// filled in when zero.
func (db *Database) SaveHistory(ctx context.Context, h *models.ArchivedHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO histories (id, title, model, created_at)
		VALUES (?, ?, ?, ?)`,
		h.ID, h.Title, h.Model, h.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}

	for i, m := range h.Messages {
		attachments, err := json.Marshal(nonNil(m.Attachments))
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history_messages (history_id, position, role, content, attachments, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			h.ID, i, m.Role, m.Content, string(attachments), m.Timestamp); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListHistories returns every archive, newest first, without messages.
func (db *Database) ListHistories(ctx context.Context) ([]models.ArchivedHistory, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, title, model, created_at
        FROM histories
        ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return []models.ArchivedHistory{}, err
	}
	defer rows.Close()

	histories := make([]models.ArchivedHistory, 0)
	for rows.Next() {
		var h models.ArchivedHistory
		if err := rows.Scan(&h.ID, &h.Title, &h.Model, &h.CreatedAt); err != nil {
			return []models.ArchivedHistory{}, err
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

func (db *Database) GetHistory(ctx context.Context, id string) (*models.ArchivedHistory, error) {
	h := &models.ArchivedHistory{ID: id}
	err := db.db.QueryRowContext(ctx, `
        SELECT title, model, created_at FROM histories WHERE id = ?`, id).
		Scan(&h.Title, &h.Model, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT role, content, attachments, created_at
        FROM history_messages
        WHERE history_id = ?
        ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h.Messages = make([]models.ChatMessage, 0)
	for rows.Next() {
		var (
			m           models.ChatMessage
			attachments string
		)
		if err := rows.Scan(&m.Role, &m.Content, &attachments, &m.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
		if len(m.Attachments) == 0 {
			m.Attachments = nil
		}
		h.Messages = append(h.Messages, m)
	}
	return h, rows.Err()
}

func (db *Database) DeleteHistory(ctx context.Context, id string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete messages first so the FTS trigger fires for each row
	if _, err := tx.ExecContext(ctx, "DELETE FROM history_messages WHERE history_id = ?", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM histories WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

type SearchResult struct {
	History models.ArchivedHistory `json:"history"`
	Snippet string                 `json:"snippet"`
}

// SearchHistories runs a full-text query over archived message content and
// returns each matching history once, newest first.
func (db *Database) SearchHistories(ctx context.Context, query string) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return []SearchResult{}, nil
	}

	rows, err := db.db.QueryContext(ctx, `
		SELECT h.id, h.title, h.model, h.created_at, snippet(history_fts, '[', ']', '...')
		FROM history_fts
		JOIN history_messages m ON m.id = history_fts.docid
		JOIN histories h ON h.id = m.history_id
		WHERE history_fts.content MATCH ?
		ORDER BY h.created_at DESC, m.position ASC`, match)
	if err != nil {
		return nil, fmt.Errorf("failed to search histories: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0)
	seen := make(map[string]bool)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.History.ID, &r.History.Title, &r.History.Model, &r.History.CreatedAt, &r.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if seen[r.History.ID] {
			continue
		}
		seen[r.History.ID] = true
		results = append(results, r)
	}
	return results, rows.Err()
}

// ftsQuery quotes every word so user input cannot break MATCH syntax.
func ftsQuery(q string) string {
	var terms []string
	for _, w := range strings.Fields(strings.ReplaceAll(q, `"`, " ")) {
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " ")
}

func nonNil(a []models.Attachment) []models.Attachment {
	if a == nil {
		return []models.Attachment{}
	}
	return a
}
