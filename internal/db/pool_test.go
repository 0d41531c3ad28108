package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clinic/internal/errors"
)

func newMockPool(t *testing.T, cfg PoolConfig) *Pool {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewPool(sqlDB, cfg)
}

func TestNewPool_Defaults(t *testing.T) {
	pool := newMockPool(t, PoolConfig{})

	assert.Equal(t, DefaultPoolSize, pool.Size())
	assert.Equal(t, DefaultAcquireTimeout, pool.acquireTimeout)
}

func TestAcquireConnection_ExhaustedAfterTimeout(t *testing.T) {
	pool := newMockPool(t, PoolConfig{Size: 1, AcquireTimeout: 50 * time.Millisecond})

	held, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)
	defer held.Close()

	start := time.Now()
	_, err = pool.AcquireConnection(context.Background())
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.ErrorIs(t, err, apperrors.ErrPoolExhausted)

	var se *apperrors.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, apperrors.StoragePoolExhausted, se.Kind)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.InUse)
	assert.Equal(t, int64(1), stats.ExhaustedCount)
	assert.Equal(t, int64(1), stats.WaitCount)
}

func TestAcquireConnection_WaiterGetsReleasedConnection(t *testing.T) {
	pool := newMockPool(t, PoolConfig{Size: 1, AcquireTimeout: 2 * time.Second})

	held, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		held.Close()
	}()

	conn, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	assert.Equal(t, int64(0), pool.Stats().InUse)
}

func TestAcquireConnection_CancelledContext(t *testing.T) {
	pool := newMockPool(t, PoolConfig{Size: 1, AcquireTimeout: time.Second})

	held, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pool.AcquireConnection(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.NotErrorIs(t, err, apperrors.ErrPoolExhausted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnClose_Idempotent(t *testing.T) {
	pool := newMockPool(t, PoolConfig{Size: 1})

	conn, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.Equal(t, int64(0), pool.Stats().InUse)

	// The single slot must be free exactly once.
	again, err := pool.AcquireConnection(context.Background())
	require.NoError(t, err)
	again.Close()
}

func TestWithConnection_ReleasesOnPanic(t *testing.T) {
	pool := newMockPool(t, PoolConfig{Size: 1})

	assert.Panics(t, func() {
		_ = pool.WithConnection(context.Background(), func(conn *Conn) error { panic("boom") })
	})
	assert.Equal(t, int64(0), pool.Stats().InUse)

	err := pool.WithConnection(context.Background(), func(conn *Conn) error { return nil })
	assert.NoError(t, err)
}

func TestPool_NeverExceedsSize(t *testing.T) {
	const size = 3
	pool := newMockPool(t, PoolConfig{Size: size, AcquireTimeout: 2 * time.Second})

	var (
		mu      sync.Mutex
		current int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.WithConnection(context.Background(), func(conn *Conn) error {
				mu.Lock()
				current++
				if current > peak {
					peak = current
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				current--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, size)
	assert.Equal(t, int64(12), pool.Stats().AcquireCount)
	assert.LessOrEqual(t, pool.Stats().OpenConns, size)
}
