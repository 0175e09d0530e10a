// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

// SQLiteStore keeps conversations in a SQLite database so they survive a
// restart. Times are stored as unix nanoseconds.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLiteStore opens or creates the database at path and creates the
// schema if it does not exist.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, opts: opts.withDefaults()}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_expires ON conversations(expires_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context) (types.Conversation, error) {
	now := s.opts.Now()
	conv := types.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, expires_at) VALUES (?, ?, ?)`,
		conv.ID, conv.CreatedAt.UnixNano(), conv.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return types.Conversation{}, fmt.Errorf("inserting conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, msgs ...types.Message) error {
	now := s.opts.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET expires_at = ? WHERE id = ? AND expires_at > ?`,
		now.Add(s.opts.TTL).UnixNano(), id, now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("refreshing conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		at := m.At
		if at.IsZero() {
			at = now
		}
		if _, err := stmt.ExecContext(ctx, id, string(m.Role), m.Content, at.UnixNano()); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) History(ctx context.Context, id string) ([]types.Message, error) {
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM conversations WHERE id = ?`, id,
	).Scan(&expires)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up conversation: %w", err)
	}
	if !s.opts.Now().Before(time.Unix(0, expires)) {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, at FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []types.Message{}
	for rows.Next() {
		var (
			role, content string
			at            int64
		)
		if err := rows.Scan(&role, &content, &at); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, types.Message{Role: types.Role(role), Content: content, At: time.Unix(0, at)})
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) Close(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE expires_at <= ?`, s.opts.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweeping conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Shutdown releases the database connection.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}
