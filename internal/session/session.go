// Package session persists conversation sessions and their message history
// in PostgreSQL.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightlab/insighthub/internal/log"
)

// Message roles. These mirror the model conversation roles and are enforced
// by a database constraint.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleTool   = "tool"
	RoleSystem = "system"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is one conversation.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	AgentName string    `json:"agent_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a session, ordered by Sequence.
type Message struct {
	SessionID uuid.UUID `json:"session_id"`
	Sequence  int32     `json:"sequence"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages sessions and messages.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a session store.
func New(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("database pool cannot be nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create starts a new session for an agent.
func (s *Store) Create(ctx context.Context, title, agentName string) (*Session, error) {
	if agentName == "" {
		return nil, errors.New("agent name cannot be empty")
	}

	var sess Session
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (title, agent_name)
		VALUES ($1, $2)
		RETURNING id, title, agent_name, created_at, updated_at`,
		title, agentName).
		Scan(&sess.ID, &sess.Title, &sess.AgentName, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("session created", "session_id", sess.ID, "agent", agentName)
	return &sess, nil
}

// Get returns one session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, agent_name, created_at, updated_at
		FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.Title, &sess.AgentName, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &sess, nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit int32) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, agent_name, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.AgentName, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}

// Delete removes a session and, via cascade, its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// AppendMessage adds a message with the next sequence number and bumps the
// session's updated_at. The sequence assignment and insert run in one
// transaction so concurrent appends cannot collide.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var msg Message
	err = tx.QueryRow(ctx, `
		INSERT INTO session_messages (session_id, sequence_number, role, content)
		VALUES ($1,
			(SELECT COALESCE(MAX(sequence_number), 0) + 1
			 FROM session_messages WHERE session_id = $1),
			$2, $3)
		RETURNING session_id, sequence_number, role, content, created_at`,
		sessionID, role, content).
		Scan(&msg.SessionID, &msg.Sequence, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return &msg, nil
}

// Messages returns the most recent messages of a session in chronological
// order. A limit of 0 returns everything.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Message, error) {
	query := `
		SELECT session_id, sequence_number, role, content, created_at
		FROM session_messages WHERE session_id = $1
		ORDER BY sequence_number`
	args := []any{sessionID}
	if limit > 0 {
		// Last N messages, still oldest-first.
		query = `
			SELECT session_id, sequence_number, role, content, created_at
			FROM (
				SELECT session_id, sequence_number, role, content, created_at
				FROM session_messages WHERE session_id = $1
				ORDER BY sequence_number DESC LIMIT $2
			) recent ORDER BY sequence_number`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.SessionID, &msg.Sequence, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return out, nil
}
