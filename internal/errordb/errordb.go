package errordb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded error occurrence with its eventual solution.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
	FilePath  string    `json:"filePath,omitempty"`
	Solution  string    `json:"solution,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Store persists the error history in a SQLite database under the state
// directory.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates errors.db inside stateDir.
func Open(stateDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, "errors.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open error database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize error schema: %w", err)
	}
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			message TEXT NOT NULL,
			file_path TEXT NOT NULL DEFAULT '',
			solution TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_errors_file_path ON errors(file_path);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record inserts one error occurrence.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Message) == "" {
		return 0, fmt.Errorf("error message is required")
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO errors (created_at, message, file_path, solution, tags) VALUES (?, ?, ?, ?, ?)`,
		createdAt.Format(time.RFC3339), e.Message, e.FilePath, e.Solution, strings.Join(e.Tags, ","))
	if err != nil {
		return 0, fmt.Errorf("failed to record error: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.logger.Debug("error recorded", "id", id, "file", e.FilePath)
	return id, nil
}

// CountMatches counts recorded errors whose message or file path mentions
// the given file basename.
func (s *Store) CountMatches(basename string) (int, error) {
	if basename == "" {
		return 0, nil
	}
	needle := "%" + basename + "%"
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM errors WHERE message LIKE ? OR file_path LIKE ?`,
		needle, needle).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count error matches: %w", err)
	}
	return count, nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, created_at, message, file_path, solution, tags
		 FROM errors ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list errors: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt, tags string
		if err := rows.Scan(&e.ID, &createdAt, &e.Message, &e.FilePath, &e.Solution, &tags); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		if tags != "" {
			e.Tags = strings.Split(tags, ",")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
