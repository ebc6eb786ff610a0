package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable Pending implementation. It keeps the same
// take-and-clear semantics as MemoryStore but survives process restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger.With().Str("component", "pending_store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info().Str("path", dbPath).Msg("pending store initialized")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS pending_requests (
		user_id    INTEGER PRIMARY KEY,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Put(userID int64, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO pending_requests (user_id, payload, created_at) VALUES (?, ?, ?)`,
		userID, string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// TakeAndClear reads and deletes inside one transaction so a duplicate
// decision observes an empty ledger.
func (s *SQLiteStore) TakeAndClear(userID int64) (Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return Request{}, false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var payload string
	err = tx.QueryRow(`SELECT payload FROM pending_requests WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, fmt.Errorf("failed to get request: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM pending_requests WHERE user_id = ?`, userID); err != nil {
		return Request{}, false, fmt.Errorf("failed to delete request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Request{}, false, fmt.Errorf("failed to commit: %w", err)
	}

	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return Request{}, false, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return req, true, nil
}

func (s *SQLiteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
