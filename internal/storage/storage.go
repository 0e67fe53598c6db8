package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

const (
	schemaPrompts = `CREATE TABLE IF NOT EXISTS prompts
		(id INTEGER PRIMARY KEY AUTOINCREMENT,
		 title TEXT UNIQUE,
		 category TEXT,
		 tags TEXT,
		 positive TEXT,
		 negative TEXT,
		 last_used TEXT,
		 favorite INTEGER DEFAULT 0)`
	schemaSettings = `CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT)`
)

// Storage owns the vault database file. Every operation opens the file,
// runs one statement or a short transaction, and closes it again, so the
// file can be copied or replaced between operations.
type Storage struct {
	path          string
	retryAttempts uint
	retryDelay    time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Storage
type Option func(*Storage)

// WithRetry sets how many times a busy or locked database is retried
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Storage) {
		if attempts == 0 {
			attempts = 1
		}
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}

// WithRand sets the random source used by RandomPick
func WithRand(r *rand.Rand) Option {
	return func(s *Storage) {
		s.rng = r
	}
}

// NewStorage creates the database file and schema at path if needed
func NewStorage(ctx context.Context, path string, opts ...Option) (*Storage, error) {
	if path == "" {
		return nil, errors.InvalidInputError("database path is empty")
	}

	s := &Storage{
		path:          path,
		retryAttempts: 3,
		retryDelay:    50 * time.Millisecond,
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid()))),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.IOError("Create data directory", err).WithContext("path", filepath.Dir(path))
	}
	if err := s.InitLibrary(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// InitLibrary creates the prompts table and, on first run, the settings
// table with its default values.
func (s *Storage) InitLibrary(ctx context.Context) error {
	return s.withTx(ctx, "initialize schema", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaPrompts); err != nil {
			return err
		}

		var name string
		err := tx.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name='settings'").Scan(&name)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return err
		}

		if _, err := tx.ExecContext(ctx, schemaSettings); err != nil {
			return err
		}
		for _, setting := range models.DefaultSettings {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
				setting.Key, setting.Value); err != nil {
				return err
			}
		}
		log.WithField("path", s.path).Info("created settings table with defaults")
		return nil
	})
}

// open returns a single-connection handle on the database file
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(2000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// withDB opens the database, runs fn and closes it. Busy and locked
// failures are retried; anything that is not already an AppError is
// classified before it is returned.
func (s *Storage) withDB(ctx context.Context, operation string, fn func(*sql.DB) error) error {
	return retry.Do(
		func() error {
			db, err := open(s.path)
			if err != nil {
				return classify(operation, err)
			}
			defer db.Close()

			if err := fn(db); err != nil {
				return classify(operation, err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.RetryIf(errors.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithFields(log.Fields{"operation": operation, "attempt": n + 1}).
				WithError(err).Warn("database busy, retrying")
		}),
	)
}

// withTx runs fn inside a transaction that is committed when fn succeeds
func (s *Storage) withTx(ctx context.Context, operation string, fn func(*sql.Tx) error) error {
	return s.withDB(ctx, operation, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// classify converts driver errors into AppErrors
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	var sqlErr *sqlite.Error
	if stderrors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return errors.LockedError(operation, err)
		case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return errors.Wrap(err, errors.ErrCodeFileCorrupted,
				fmt.Sprintf("Database is corrupt or not a prompt vault: %s", operation))
		}
	}
	return errors.StorageError(operation, err)
}

// formatTime renders t in the stored last_used layout
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(models.TimeLayout)
}

// parseTime reads a stored last_used value; unparseable values sort as zero
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(models.TimeLayout, value, time.Local)
	if err != nil {
		log.WithField("value", value).Debug("unparseable last_used value")
		return time.Time{}
	}
	return t
}
