// Package store implements the vector store client: a bounded pgx connection
// pool over PostgreSQL + pgvector with an explicit open/close lifecycle.
//
// The Store is the only long-lived shared mutable resource in the pipeline.
// It is safe for concurrent use; Insert and NearestNeighbors run concurrently
// once open, bounded by the pool size, while Open and Close are exclusive.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrClosed is returned by operations invoked before Open or after Close.
	ErrClosed = errors.New("vector store is closed")

	// ErrInvalidArgument is returned for precondition violations such as a
	// query vector whose length does not match the configured dimensionality.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Config controls pool sizing and search behavior.
type Config struct {
	// ConnString is the postgres:// connection URL.
	ConnString string

	// MinConns and MaxConns bound the pool.
	MinConns int32
	MaxConns int32

	// Probes is the ivfflat.probes session parameter, applied on every
	// pooled checkout before a search is issued. Connections are reused
	// across requests, so the setting cannot be assumed to persist.
	Probes int

	// Dim is the required embedding length.
	Dim int
}

// Store manages passages with vector search over a pooled connection set.
//
// Lifecycle: uninitialized → ready (Open, idempotent) → closed (Close,
// idempotent). Operations on a closed store fail with ErrClosed until Open
// is called again.
type Store struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool // nil when not open
}

// New creates an unopened Store. Call Open before use.
func New(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cfg: cfg, logger: logger}
}

// Open establishes the connection pool. It is idempotent: a second call on a
// ready store is a no-op and never creates a duplicate pool.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(s.cfg.ConnString)
	if err != nil {
		return fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MinConns = s.cfg.MinConns
	poolCfg.MaxConns = s.cfg.MaxConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	s.pool = pool
	s.logger.Debug("vector store open",
		"min_conns", s.cfg.MinConns,
		"max_conns", s.cfg.MaxConns,
	)
	return nil
}

// Close drains and releases all connections. Idempotent; subsequent
// operations fail with ErrClosed until Open is called again.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return
	}
	s.pool.Close()
	s.pool = nil
	s.logger.Debug("vector store closed")
}

// acquire returns the live pool or ErrClosed. Callers must not hold the
// returned pool past the single operation they need it for.
func (s *Store) acquire() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, ErrClosed
	}
	return s.pool, nil
}

// Insert stores one passage with its embedding. The embedding length is a
// precondition: a mismatch fails with ErrInvalidArgument before any store
// mutation. Each insert is a single atomic store operation.
func (s *Store) Insert(ctx context.Context, p Passage) error {
	if len(p.Embedding) != s.cfg.Dim {
		return fmt.Errorf("%w: embedding length %d, want %d",
			ErrInvalidArgument, len(p.Embedding), s.cfg.Dim)
	}

	pool, err := s.acquire()
	if err != nil {
		return err
	}

	section := p.Section
	if section == "" {
		section = DefaultSection
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO passages (book_title, section, chunk_idx, body, embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.BookTitle, section, p.ChunkIdx, p.Body, pgvector.NewVector(p.Embedding),
	)
	if err != nil {
		return fmt.Errorf("inserting passage: %w", err)
	}

	s.logger.Debug("inserted passage",
		"book_title", p.BookTitle,
		"chunk_idx", p.ChunkIdx,
		"body_length", len(p.Body),
	)
	return nil
}

// NearestNeighbors returns up to k passages ordered by ascending L2 distance
// to the query vector. Ties are broken by store-defined order, which is not
// guaranteed stable across index rebuilds.
//
// The ivfflat.probes session parameter is applied on the checked-out
// connection before the query runs; it tunes the index's accuracy/speed
// tradeoff and does not persist across pooled connections.
func (s *Store) NearestNeighbors(ctx context.Context, query []float32, k int) ([]ScoredPassage, error) {
	if len(query) != s.cfg.Dim {
		return nil, fmt.Errorf("%w: query vector length %d, want %d",
			ErrInvalidArgument, len(query), s.cfg.Dim)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	pool, err := s.acquire()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// SET does not accept bind parameters; probes is validated config, not
	// user input.
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", s.cfg.Probes)); err != nil {
		return nil, fmt.Errorf("setting ivfflat.probes: %w", err)
	}

	rows, err := conn.Query(ctx,
		`SELECT id, book_title, COALESCE(section, $3), chunk_idx, body,
		        embedding <-> $1 AS distance
		 FROM passages
		 ORDER BY distance ASC
		 LIMIT $2`,
		pgvector.NewVector(query), k, DefaultSection,
	)
	if err != nil {
		return nil, fmt.Errorf("querying nearest neighbors: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredPassage, 0, k)
	for rows.Next() {
		var sp ScoredPassage
		if err := rows.Scan(&sp.ID, &sp.BookTitle, &sp.Section, &sp.ChunkIdx, &sp.Body, &sp.Distance); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return results, nil
}

// Ping verifies database connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.acquire()
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Stat reports pool statistics, or zeroes when the store is closed.
func (s *Store) Stat() (total, idle int32) {
	pool, err := s.acquire()
	if err != nil {
		return 0, 0
	}
	st := pool.Stat()
	return st.TotalConns(), st.IdleConns()
}
