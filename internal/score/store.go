// internal/score/store.go
//
// Durable best-score storage for the memomatch server.
// Responsibilities:
//   - Opening the SQLite database with safe defaults (WAL, busy timeout,
//     foreign keys) and applying embedded migrations (recorded in _migrations).
//   - RecordIfBest: single global slot, overwritten only by a strictly lower
//     completion time.
//   - Last-used player name via the settings key/value table.
//
// Malformed stored data degrades to "no record" rather than surfacing an
// error to the player.

package score

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

const lastUserKey = "last_user"

// Record is the persisted best-score slot.
type Record struct {
	Username   string    `json:"username"`
	TimeMs     int64     `json:"timeMs"`
	RecordedAt time.Time `json:"date"`
	Pairs      int       `json:"pairs"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if missing) the SQLite database at dsn, applies
// migrations, and returns a ready Store.
func Open(dsn string) (*Store, error) {
	// Ensure directory exists for ./data/memomatch.db, etc.
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// migrate applies embedded SQL migrations in lexical order, tracking applied
// files in a _migrations table so re-runs are no-ops.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, name).Scan(&done)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrationsFS.ReadFile("sql/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

// RecordIfBest stores the completion time if it is strictly lower than the
// current record (or no record exists). Returns true when the slot was
// overwritten. The slot is global: all pair counts share one record.
func (s *Store) RecordIfBest(ctx context.Context, username string, elapsed time.Duration, pairs int) (bool, error) {
	newMs := elapsed.Milliseconds()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var curMs int64
	err = tx.QueryRowContext(ctx, `SELECT time_ms FROM best_score WHERE id=1`).Scan(&curMs)
	switch {
	case err == nil:
		if curMs > 0 && newMs >= curMs {
			return false, nil
		}
	case err == sql.ErrNoRows:
		// first record
	default:
		// Corrupt slot: log and let the new record replace it.
		log.Warn().Err(err).Msg("best score unreadable, overwriting")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO best_score (id, username, time_ms, recorded_at, pairs)
        VALUES (1, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            username=excluded.username,
            time_ms=excluded.time_ms,
            recorded_at=excluded.recorded_at,
            pairs=excluded.pairs`,
		username, newMs, now, pairs); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Best loads the current record, or nil when none exists. Malformed rows
// are treated as absent.
func (s *Store) Best(ctx context.Context) (*Record, error) {
	var r Record
	var recorded string
	err := s.db.QueryRowContext(ctx,
		`SELECT username, time_ms, recorded_at, pairs FROM best_score WHERE id=1`,
	).Scan(&r.Username, &r.TimeMs, &recorded, &r.Pairs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("best score unreadable, treating as absent")
		return nil, nil
	}
	if r.Username == "" || r.TimeMs <= 0 {
		log.Warn().Int64("timeMs", r.TimeMs).Msg("best score malformed, treating as absent")
		return nil, nil
	}
	r.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
	return &r, nil
}

// LastUser returns the last-used player name, or "" when unset.
func (s *Store) LastUser(ctx context.Context) string {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, lastUserKey).Scan(&v)
	if err != nil && err != sql.ErrNoRows {
		log.Warn().Err(err).Msg("read last user")
	}
	return v
}

// SetLastUser remembers the player name for the next visit.
func (s *Store) SetLastUser(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		lastUserKey, name)
	return err
}
