// Package sqlitestore implements storage.Backend on a SQLite database file
// using a zombiezen connection pool.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var errIDEmpty = errors.New("ID cannot be empty")

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize defaults to 4 when zero.
	PoolSize int

	// Logger receives pool lifecycle messages. Nil discards them.
	Logger *slog.Logger
}

// Store implements storage.Backend on SQLite.
type Store struct {
	pool *pool
}

// Open creates the schema if needed and returns a ready Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitestore: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p, err := openPool(cfg.Path, cfg.PoolSize, logger, nil)
	if err != nil {
		return nil, err
	}

	conn, err := p.take(ctx)
	if err != nil {
		_ = p.close()
		return nil, err
	}
	err = sqlitex.ExecuteScript(conn, schema, nil)
	p.put(conn)
	if err != nil {
		_ = p.close()
		return nil, fmt.Errorf("sqlitestore: creating schema: %w", err)
	}

	return &Store{pool: p}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	return s.pool.close()
}

// write runs fn on a pooled connection inside an IMMEDIATE transaction.
func (s *Store) write(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := s.pool.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	return fn(conn)
}

// read runs fn on a pooled connection.
func (s *Store) read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.put(conn)

	return fn(conn)
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
