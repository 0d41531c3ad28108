package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "clinic/internal/errors"
)

const (
	// DefaultPoolSize is used when PoolConfig.Size is not positive.
	DefaultPoolSize = 10
	// DefaultAcquireTimeout is used when PoolConfig.AcquireTimeout is not positive.
	DefaultAcquireTimeout = 5 * time.Second
)

// PoolConfig sizes the pool.
type PoolConfig struct {
	Size            int
	AcquireTimeout  time.Duration
	ConnMaxLifetime time.Duration
}

// Pool hands out at most Size connections at a time. A caller that finds the
// pool full waits up to AcquireTimeout (or its own context deadline, if sooner)
// and then gets ErrPoolExhausted. No connection is ever opened beyond Size.
type Pool struct {
	db             *sql.DB
	sem            *semaphore.Weighted
	size           int64
	acquireTimeout time.Duration

	inUse     atomic.Int64
	acquires  atomic.Int64
	waits     atomic.Int64
	exhausted atomic.Int64
}

// NewPool wraps db and caps its open connections at cfg.Size.
func NewPool(db *sql.DB, cfg PoolConfig) *Pool {
	size := cfg.Size
	if size <= 0 {
		size = DefaultPoolSize
	}
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Pool{
		db:             db,
		sem:            semaphore.NewWeighted(int64(size)),
		size:           int64(size),
		acquireTimeout: timeout,
	}
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return int(p.size)
}

// Conn is a pooled connection. Close returns it to the pool; calling Close more
// than once is a no-op.
type Conn struct {
	conn *sql.Conn
	pool *Pool
	once sync.Once
}

// AcquireConnection draws a connection from the pool. The caller must Close it,
// normally with defer; WithConnection does that for you.
func (p *Pool) AcquireConnection(ctx context.Context) (*Conn, error) {
	if err := p.reserve(ctx); err != nil {
		return nil, err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, classify("acquire connection", err)
	}

	p.inUse.Add(1)
	p.acquires.Add(1)
	return &Conn{conn: conn, pool: p}, nil
}

func (p *Pool) reserve(ctx context.Context) error {
	if p.sem.TryAcquire(1) {
		return nil
	}

	p.waits.Add(1)
	waitCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return apperrors.NewStorageError(apperrors.StorageOther, "acquire connection", ctxErr)
		}
		p.exhausted.Add(1)
		return apperrors.NewStorageError(apperrors.StoragePoolExhausted, "acquire connection",
			fmt.Errorf("all %d connections busy", p.size))
	}
	return nil
}

// WithConnection runs fn with a pooled connection and always returns it, even
// if fn panics.
func (p *Pool) WithConnection(ctx context.Context, fn func(conn *Conn) error) error {
	conn, err := p.AcquireConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.conn.Close()
		c.pool.inUse.Add(-1)
		c.pool.sem.Release(1)
	})
	return err
}

// BeginTx starts a transaction on this connection.
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	return tx, nil
}

// Cursor opens a cursor directly on the connection (autocommit mode).
func (c *Conn) Cursor() *Cursor {
	return newCursor(c.conn)
}

// Ping checks that a connection can be acquired and answers.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConnection(ctx, func(conn *Conn) error {
		if err := conn.conn.PingContext(ctx); err != nil {
			return classify("ping", err)
		}
		return nil
	})
}

// Close closes the underlying database handle.
func (p *Pool) Close() error {
	return p.db.Close()
}
