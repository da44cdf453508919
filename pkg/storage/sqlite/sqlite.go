// Package sqlite implements the storage interfaces on top of a local SQLite
// database file using database/sql and goqu. SQLite keeps the scan history
// usable across restarts and shareable between processes on the same machine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"filescan/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "modernc.org/sqlite"
)

// Options defines the configuration parameters for the SQLite database.
type Options struct {
	// Path is the database file location. ":memory:" opens an in-memory
	// database, useful for tests.
	Path string
	// Cap is the maximum number of history records retained. Inserting beyond
	// the cap evicts the oldest records. Zero falls back to DefaultCap.
	Cap int
	// BusyTimeout bounds how long a statement waits on a locked database file
	// before failing. Zero falls back to DefaultBusyTimeout.
	BusyTimeout time.Duration
}

// DefaultCap is the history retention limit used when Options.Cap is zero.
const DefaultCap = 100

// DefaultBusyTimeout is used when Options.BusyTimeout is zero.
const DefaultBusyTimeout = 5 * time.Second

// DB defines the subset of database/sql methods used by this package. Both
// *sql.DB and *sql.Tx satisfy this interface, allowing the same code paths to
// be used within and outside transactions.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Builder abstracts the minimal subset of goqu methods used by this package to
// construct queries. Both a goqu database handle and a transaction handle
// implement this interface.
type Builder interface {
	From(table ...interface{}) *goqu.SelectDataset
	Insert(table interface{}) *goqu.InsertDataset
	Delete(table interface{}) *goqu.DeleteDataset
}

// SQLite implements storage.Storage for a local SQLite file.
type SQLite struct {
	// DB is the underlying executor, either a *sql.DB or a *sql.Tx.
	DB DB
	// Builder is the goqu handle used to construct SQL queries bound to DB.
	Builder Builder

	cap int
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	db, ok := s.DB.(*sql.DB)
	if !ok {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("could not close sqlite db: %w", err)
	}

	return nil
}

// withTx runs cb against a transactional handle and commits if cb returns nil.
func (s *SQLite) withTx(ctx context.Context, cb func(tx *SQLite) error) error {
	db, ok := s.DB.(*sql.DB)
	if !ok {
		// already transactional, run in place
		return cb(s)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin tx: %w", err)
	}

	if err := cb(&SQLite{
		DB:      tx,
		Builder: goqu.NewTx("sqlite3", tx),
		cap:     s.cap,
	}); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit tx: %w", err)
	}

	return nil
}

// Ensure SQLite conforms to the storage interfaces at compile time.
var _ storage.Storage = (*SQLite)(nil)

// New opens (creating if needed) the SQLite database at options.Path. WAL mode
// keeps concurrent readers from blocking the single writer.
func New(options Options) (*SQLite, error) {
	if options.Cap <= 0 {
		options.Cap = DefaultCap
	}
	if options.BusyTimeout <= 0 {
		options.BusyTimeout = DefaultBusyTimeout
	}

	dsn := "file:" + options.Path + "?" + url.Values{
		"_pragma": []string{
			fmt.Sprintf("busy_timeout(%d)", options.BusyTimeout.Milliseconds()),
			"journal_mode(WAL)",
			"foreign_keys(1)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite db: %w", err)
	}
	// SQLite allows a single writer at a time; serialize through one connection
	// to avoid SQLITE_BUSY churn under concurrent writes.
	db.SetMaxOpenConns(1)

	return &SQLite{
		DB:      db,
		Builder: goqu.Dialect("sqlite3").DB(db),
		cap:     options.Cap,
	}, nil
}
