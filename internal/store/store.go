// Package store is the local client-side state: the session (server URL,
// auth token, current project) and the per-project filter state, kept in a
// small SQLite db under the store directory. Nothing in here is the system
// of record — the server is — so losing this file only loses preferences.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Store locates the on-disk state. Dir is the workspace root; the db lives
// at <Dir>/.storymap/state.sqlite.
type Store struct {
	Dir string
}

func New(dir string) Store {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return Store{Dir: dir}
}

func (s Store) localDir() string {
	return filepath.Join(filepath.Clean(s.Dir), ".storymap")
}

func (s Store) dbPath() string {
	return filepath.Join(s.localDir(), "state.sqlite")
}

// Ensure creates the local directory if missing.
func (s Store) Ensure() error {
	return os.MkdirAll(s.localDir(), 0o755)
}

func (s Store) open(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.dbPath())
	if err != nil {
		return nil, err
	}
	// Pragmas for multi-process local usage.
	// WAL enables one writer + many readers; busy_timeout helps avoid "database is locked" flakiness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS filter_state (
			project_id INTEGER PRIMARY KEY,
			v TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Session is the saved connection state.
type Session struct {
	ServerURL        string
	Token            string
	CurrentProjectID int64
}

const (
	metaServerURL = "server_url"
	metaToken     = "token"
	metaProjectID = "current_project_id"
)

func (s Store) LoadSession(ctx context.Context) (Session, error) {
	db, err := s.open(ctx)
	if err != nil {
		return Session{}, err
	}
	defer db.Close()

	readMeta := func(k string) string {
		var v string
		_ = db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
		return strings.TrimSpace(v)
	}
	out := Session{
		ServerURL: readMeta(metaServerURL),
		Token:     readMeta(metaToken),
	}
	if v := readMeta(metaProjectID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.CurrentProjectID = id
		}
	}
	return out, nil
}

func (s Store) SaveSession(ctx context.Context, sess Session) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	pairs := [][2]string{
		{metaServerURL, strings.TrimSpace(sess.ServerURL)},
		{metaToken, strings.TrimSpace(sess.Token)},
		{metaProjectID, strconv.FormatInt(sess.CurrentProjectID, 10)},
	}
	for _, kv := range pairs {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearToken drops the saved credential but keeps the rest of the session.
func (s Store) ClearToken(ctx context.Context) error {
	sess, err := s.LoadSession(ctx)
	if err != nil {
		return err
	}
	sess.Token = ""
	return s.SaveSession(ctx, sess)
}

// LoadFilter returns the stored filter JSON for a project, or "" when none
// was saved yet.
func (s Store) LoadFilter(ctx context.Context, projectID int64) (string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var v string
	err = db.QueryRowContext(ctx, `SELECT v FROM filter_state WHERE project_id = ?`, projectID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s Store) SaveFilter(ctx context.Context, projectID int64, v string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO filter_state(project_id, v) VALUES(?, ?)`, projectID, v)
	return err
}

func (s Store) DeleteFilter(ctx context.Context, projectID int64) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `DELETE FROM filter_state WHERE project_id = ?`, projectID)
	return err
}
