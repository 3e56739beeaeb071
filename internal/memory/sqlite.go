package memory

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is an append-log backend: each Add inserts one row instead of
// rewriting the whole document. Records are mirrored in memory so retrieval
// behaves exactly like FileStore.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	records []string
	entropy *rand.Rand
	logger  *slog.Logger
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps inserts strictly ordered.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		records: []string{},
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.With("component", "memory", "backend", BackendSQLite),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.load(); err != nil {
		s.logger.Warn("discarding unreadable memory rows", "path", dbPath, "err", err)
		s.records = []string{}
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS memories (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) load() error {
	rows, err := s.db.Query(`SELECT content FROM memories ORDER BY seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var records []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return err
		}
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if records != nil {
		s.records = records
	}
	return nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Add appends text and inserts a row for it.
func (s *SQLiteStore) Add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, text)
	_, err := s.db.Exec(`INSERT INTO memories (id, content, created_at) VALUES (?, ?, ?)`,
		s.newID(), text, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Warn("inserting memory failed", "err", err)
	}
}

func (s *SQLiteStore) Retrieve(query string, topK int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return match(s.records, query, topK)
}

// Clear deletes every row.
func (s *SQLiteStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []string{}
	if _, err := s.db.Exec(`DELETE FROM memories`); err != nil {
		s.logger.Warn("clearing memory table failed", "err", err)
	}
}

func (s *SQLiteStore) Records() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.records))
	copy(out, s.records)
	return out
}

func (s *SQLiteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
