// Package tx runs postgres work inside retried transactions.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	DefaultAttempts = 3
	retryBackoff    = 20 * time.Millisecond
)

// SQLSTATE codes that mean the transaction lost a race and can be replayed.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

var ErrRetryExhausted = errors.New("tx: retries exhausted")

type Manager struct {
	DB       *sql.DB
	Attempts int
}

// WithTx runs fn in a read-committed transaction, committing when fn returns
// nil. Serialization failures and deadlocks replay fn from scratch, so fn must
// not have side effects outside tx.
func (m *Manager) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * retryBackoff):
			}
		}

		last = m.run(ctx, fn)
		if !retryable(last) {
			return last
		}
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, last)
}

func (m *Manager) run(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := m.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case serializationFailure, deadlockDetected:
		return true
	}
	return false
}
