package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"acu-chatbot/internal/common/logger"
)

// HistoryLimit is how many messages a session keeps; older rows are
// trimmed on every save.
const HistoryLimit = 20

// Message is one stored conversation turn.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists conversation history in Postgres. The store is
// best-effort: persistence failures are logged and the conversation goes
// on without history.
type HistoryStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewHistoryStore(db *sql.DB, log logger.Logger) *HistoryStore {
	return &HistoryStore{db: db, logger: log}
}

// Init creates the messages table when it does not exist yet.
func (h *HistoryStore) Init(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, id);`
	if _, err := h.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// Save appends a turn and trims the session to the most recent
// HistoryLimit rows.
func (h *HistoryStore) Save(ctx context.Context, sessionID, role, content string) {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content)
	if err != nil {
		h.logger.Warn("history save failed", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return
	}

	_, err = h.db.ExecContext(ctx,
		`DELETE FROM messages
		 WHERE session_id = $1
		   AND id NOT IN (
			SELECT id FROM messages WHERE session_id = $1 ORDER BY id DESC LIMIT $2
		 )`,
		sessionID, HistoryLimit)
	if err != nil {
		h.logger.Warn("history trim failed", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
	}
}

// History returns the session's stored turns in chronological order.
func (h *HistoryStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages
		 WHERE session_id = $1 ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// HistoryOrEmpty is History with failures logged and swallowed, for the
// request path where history is an enrichment rather than a requirement.
func (h *HistoryStore) HistoryOrEmpty(ctx context.Context, sessionID string) []Message {
	messages, err := h.History(ctx, sessionID)
	if err != nil {
		h.logger.Warn("history load failed, continuing without context", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return nil
	}
	return messages
}

// PruneOlderThan deletes messages older than the given age across all
// sessions. Returns the number of rows removed.
func (h *HistoryStore) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`DELETE FROM messages WHERE created_at < $1`,
		time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}
