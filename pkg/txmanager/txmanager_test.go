package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RentalService/pkg/dbmetrics"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs       []*fakeTx
	opts      []*sql.TxOptions
	beginErr  error
	commitErr []error
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	tx := &fakeTx{}
	if len(b.commitErr) > 0 {
		tx.commitErr = b.commitErr[0]
		b.commitErr = b.commitErr[1:]
	}
	b.txs = append(b.txs, tx)
	b.opts = append(b.opts, opts)
	return tx, nil
}

var serializationErr = &pq.Error{Code: "40001", Message: "could not serialize access"}

func TestDoCommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	require.Len(t, b.txs, 1)
	assert.True(t, b.txs[0].committed)
	assert.False(t, b.txs[0].rolledBack)
}

func TestDoRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.True(t, b.txs[0].rolledBack)
	assert.False(t, b.txs[0].committed)
}

func TestDoRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)

	assert.Panics(t, func() {
		_ = m.Do(context.Background(), func(ctx context.Context) error { panic("boom") })
	})
	assert.True(t, b.txs[0].rolledBack)
}

func TestBeginError(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{beginErr: errors.New("no conn")})
	err := m.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBeginTx)
}

func TestNestedCallReusesTransaction(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)

	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(inner context.Context) error {
			outer, _ := dbmetrics.TxFromContext(ctx)
			nested, _ := dbmetrics.TxFromContext(inner)
			assert.Same(t, outer, nested)
			return nil
		})
	})

	require.NoError(t, err)
	assert.Len(t, b.txs, 1)
}

func TestDoSerializableRetriesSerializationFailures(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b, WithMaxRetries(3))

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("repo: exec: %w", serializationErr)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, b.opts, 3)
	assert.Equal(t, sql.LevelSerializable, b.opts[0].Isolation)
	assert.True(t, b.txs[2].committed)
}

func TestDoSerializableRetriesCommitFailure(t *testing.T) {
	b := &fakeBeginner{commitErr: []error{serializationErr}}
	m := NewTransactionManager(b)

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoSerializableGivesUp(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b, WithMaxRetries(2))

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		return serializationErr
	})

	assert.ErrorIs(t, err, ErrSerializationRetriesExceeded)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetry(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)

	calls := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return serializationErr
	})

	assert.True(t, IsSerializationFailure(err))
	assert.Equal(t, 1, calls)
}

func TestDoReadOnly(t *testing.T) {
	b := &fakeBeginner{}
	m := NewTransactionManager(b)

	require.NoError(t, m.DoReadOnly(context.Background(), func(ctx context.Context) error { return nil }))
	assert.True(t, b.opts[0].ReadOnly)
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(serializationErr))
	assert.True(t, IsSerializationFailure(fmt.Errorf("wrapped: %w", serializationErr)))
	assert.False(t, IsSerializationFailure(&pq.Error{Code: "23505"}))
	assert.False(t, IsSerializationFailure(errors.New("40001")))
}
