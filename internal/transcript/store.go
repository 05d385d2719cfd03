// Package transcript persists finished runs to SQLite for audit and
// replay. It handles the global history database
// (~/.local/share/biomni/biomni.db) and rendering transcripts for the
// terminal.
package transcript

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sszhu/biomni/pkg/models"
)

// Store wraps an SQLite database holding run history.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the global history database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "biomni", "biomni.db")
}

// Open opens the history database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// OpenGlobal opens the global history database.
func OpenGlobal() (*Store, error) {
	return Open(GlobalDBPath())
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	task TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	final_answer TEXT,
	incomplete INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	tokens_in INTEGER NOT NULL DEFAULT 0,
	tokens_out INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS turns (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Save persists a finished run, replacing any previous record with the
// same run id.
func (s *Store) Save(tr *models.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs
			(id, task, status, reason, final_answer, incomplete,
			 started_at, finished_at, tokens_in, tokens_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tr.RunID, tr.Task, string(tr.Status), string(tr.Reason), tr.FinalAnswer,
		boolToInt(tr.Incomplete), formatTime(tr.StartedAt), formatTime(tr.FinishedAt),
		tr.TokensIn, tr.TokensOut)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM turns WHERE run_id = ?", tr.RunID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear turns: %w", err)
	}
	for _, turn := range tr.Turns {
		_, err := tx.Exec(`
			INSERT INTO turns (run_id, seq, role, content) VALUES (?, ?, ?, ?)
		`, tr.RunID, turn.Seq, string(turn.Role), turn.Content)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert turn %d: %w", turn.Seq, err)
		}
	}

	return tx.Commit()
}

// Get loads one run with its full turn sequence.
func (s *Store) Get(runID string) (*models.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr := &models.Transcript{}
	var status, reason, startedAt, finishedAt string
	var incomplete int

	err := s.conn.QueryRow(`
		SELECT id, task, status, reason, final_answer, incomplete,
		       started_at, finished_at, tokens_in, tokens_out
		FROM runs WHERE id = ?
	`, runID).Scan(&tr.RunID, &tr.Task, &status, &reason, &tr.FinalAnswer,
		&incomplete, &startedAt, &finishedAt, &tr.TokensIn, &tr.TokensOut)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	tr.Status = models.StopStatus(status)
	tr.Reason = models.ReasonCode(reason)
	tr.Incomplete = incomplete != 0
	if tr.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if tr.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	rows, err := s.conn.Query(`
		SELECT seq, role, content FROM turns WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn models.Turn
		var role string
		if err := rows.Scan(&turn.Seq, &role, &turn.Content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = models.Role(role)
		tr.Turns = append(tr.Turns, turn)
	}
	return tr, rows.Err()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID      string
	Task       string
	Status     models.StopStatus
	Reason     models.ReasonCode
	StartedAt  time.Time
	TurnCount  int
	TokensIn   int64
	TokensOut  int64
	Incomplete bool
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(`
		SELECT r.id, r.task, r.status, r.reason, r.started_at,
		       r.tokens_in, r.tokens_out, r.incomplete,
		       (SELECT COUNT(*) FROM turns t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var status, reason, startedAt string
		var incomplete int
		if err := rows.Scan(&rs.RunID, &rs.Task, &status, &reason, &startedAt,
			&rs.TokensIn, &rs.TokensOut, &incomplete, &rs.TurnCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Status = models.StopStatus(status)
		rs.Reason = models.ReasonCode(reason)
		rs.Incomplete = incomplete != 0
		if rs.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Purge deletes runs older than the given duration and returns how many
// were removed. Turns go with their runs via the foreign key cascade.
func (s *Store) Purge(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := s.conn.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	return result.RowsAffected()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
