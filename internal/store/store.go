package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"CampusChat/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	start_time DATETIME,
	source TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	role TEXT,
	content TEXT,
	timestamp DATETIME,
	FOREIGN KEY(session_id) REFERENCES sessions(id)
);`

// Store is the SQLite conversation log
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// NewSession creates and persists a session for source
func (s *Store) NewSession(ctx context.Context, source string) (*session.Session, error) {
	sess := &session.Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Source:    source,
		Messages:  []session.Message{},
	}
	if err := s.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession upserts the session row
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, start_time, source) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET start_time = excluded.start_time, source = excluded.source`,
		sess.ID, sess.StartTime, sess.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SessionExists reports whether a session row exists for sessionID
func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}
	return n > 0, nil
}

// AppendMessages adds messages to a session in one transaction
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs ...session.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range msgs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			sessionID, string(msg.Role), msg.Text, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadSession loads a session and its messages in insertion order
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	var source string
	var startTime time.Time

	err := s.db.QueryRowContext(ctx, "SELECT source, start_time FROM sessions WHERE id = ?", sessionID).
		Scan(&source, &startTime)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []session.Message{}
	for rows.Next() {
		var msg session.Message
		var role string
		if err := rows.Scan(&role, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = session.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return &session.Session{
		ID:        sessionID,
		StartTime: startTime,
		Source:    source,
		Messages:  messages,
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
