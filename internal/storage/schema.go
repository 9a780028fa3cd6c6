package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	return createChatLogsTable(db)
}

func createChatLogsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		source TEXT NOT NULL,
		tag TEXT,
		confidence REAL,
		language TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_logs_session ON chat_logs(session_id);
	CREATE INDEX IF NOT EXISTS idx_chat_logs_tag ON chat_logs(tag);
	CREATE INDEX IF NOT EXISTS idx_chat_logs_created_at ON chat_logs(created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create chat_logs table: %w", err)
	}

	return nil
}
