package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"taskforge/internal/llm"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, chatID string, msg llm.Message) error {
	var toolCallsJSON *string
	if len(msg.ToolCalls) > 0 {
		data, _ := json.Marshal(msg.ToolCalls)
		str := string(data)
		toolCallsJSON = &str
	}

	var toolResultsJSON *string
	if len(msg.ToolResults) > 0 {
		data, _ := json.Marshal(msg.ToolResults)
		str := string(data)
		toolResultsJSON = &str
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content, tool_calls, tool_results) VALUES (?, ?, ?, ?, ?)`,
		chatID, msg.Role, msg.Content, toolCallsJSON, toolResultsJSON,
	)
	return err
}

func (s *SQLiteStore) GetHistory(ctx context.Context, chatID string, limit int) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_results FROM (
			SELECT role, content, tool_calls, tool_results, id
			FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCallsJSON, toolResultsJSON sql.NullString

		if err := rows.Scan(&msg.Role, &msg.Content, &toolCallsJSON, &toolResultsJSON); err != nil {
			return nil, err
		}

		if toolCallsJSON.Valid {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}
		if toolResultsJSON.Valid {
			_ = json.Unmarshal([]byte(toolResultsJSON.String), &msg.ToolResults)
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *SQLiteStore) RecordToolCall(ctx context.Context, chatID, toolName string, input []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_call_log (chat_id, tool_name, input) VALUES (?, ?, ?)`,
		chatID, toolName, string(input),
	)
	return err
}

func (s *SQLiteStore) ToolCallCount(ctx context.Context, chatID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tool_call_log WHERE chat_id = ?`,
		chatID,
	).Scan(&count)
	return count, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
