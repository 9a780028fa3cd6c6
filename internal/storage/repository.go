package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklab-dev/kampusbot-go/internal/stringutil"
)

// maxLoggedRunes caps stored message and response text.
const maxLoggedRunes = 2000

// Answer sources recorded in the chat log.
const (
	SourceHandler    = "handler"
	SourceClassifier = "classifier"
	SourceHandbook   = "handbook"
	SourceFallback   = "fallback"
)

// ChatLog is one answered exchange.
type ChatLog struct {
	ID         int64
	SessionID  string
	Message    string
	Response   string
	Source     string
	Tag        string
	Confidence float64
	Language   string
	CreatedAt  time.Time
}

// Repository provides chat log persistence.
type Repository struct {
	db *DB
}

// NewRepository creates a chat log repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one exchange to the log.
func (r *Repository) Insert(ctx context.Context, log *ChatLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO chat_logs (session_id, message, response, source, tag, confidence, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.SessionID,
		stringutil.Truncate(log.Message, maxLoggedRunes),
		stringutil.Truncate(log.Response, maxLoggedRunes),
		log.Source,
		log.Tag,
		log.Confidence,
		log.Language,
		log.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert chat log id: %w", err)
	}
	log.ID = id
	return nil
}

// RecentBySession returns the newest exchanges for one session, newest
// first.
func (r *Repository) RecentBySession(ctx context.Context, sessionID string, limit int) ([]ChatLog, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, session_id, message, response, source, tag, confidence, language, created_at
		FROM chat_logs
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query session chat logs: %w", err)
	}
	defer rows.Close()

	return scanChatLogs(rows)
}

// LowConfidence returns classifier answers below threshold, newest
// first. Operators use this to spot intents that need more patterns.
func (r *Repository) LowConfidence(ctx context.Context, threshold float64, limit int) ([]ChatLog, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, session_id, message, response, source, tag, confidence, language, created_at
		FROM chat_logs
		WHERE source = ? AND confidence < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		SourceClassifier, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query low confidence chat logs: %w", err)
	}
	defer rows.Close()

	return scanChatLogs(rows)
}

// CountBySource returns how many exchanges each answer source produced.
func (r *Repository) CountBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT source, COUNT(*) FROM chat_logs GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count chat logs by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

// PruneBefore deletes exchanges older than cutoff and reports how many
// rows were removed.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Conn().ExecContext(ctx,
		`DELETE FROM chat_logs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune chat logs: %w", err)
	}
	return result.RowsAffected()
}

func scanChatLogs(rows *sql.Rows) ([]ChatLog, error) {
	var logs []ChatLog
	for rows.Next() {
		var log ChatLog
		var createdAt int64
		if err := rows.Scan(
			&log.ID, &log.SessionID, &log.Message, &log.Response,
			&log.Source, &log.Tag, &log.Confidence, &log.Language, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		log.CreatedAt = time.Unix(createdAt, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
