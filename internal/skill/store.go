// Package skill stores small named text documents used by sub-agents as
// long-term memory: runbooks, learned procedures, reference notes.
package skill

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Info is a catalog entry, content omitted.
type Info struct {
	Name      string
	UpdatedAt time.Time
}

// Store is a SQLite-backed skill library. Saving under an existing name
// replaces the document.
type Store struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS skills (
		name TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// NewStore opens (or creates) the skill database at the given path.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Save writes a skill, replacing any previous content under the name.
func (s *Store) Save(ctx context.Context, name, content string) error {
	if name == "" {
		return fmt.Errorf("skill name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skills (name, content, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		name, content,
	)
	return err
}

// Read returns a skill's content.
func (s *Store) Read(ctx context.Context, name string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM skills WHERE name = ?`, name).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("skill %q not found", name)
	}
	return content, err
}

// List returns the catalog sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, updated_at FROM skills ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Name, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a skill. Deleting a missing skill is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE name = ?`, name)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
