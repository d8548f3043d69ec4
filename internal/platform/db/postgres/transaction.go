package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// transactionContextKey はコンテキストにトランザクションを格納するためのキーです。
type transactionContextKey struct{}

var txContextKey = transactionContextKey{}

var errNilTxFunc = errors.New("postgres: transaction function is required")

// txStarter は pgxpool.Pool と pgxmock のどちらでも満たせるトランザクション開始の抽象です。
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// リトライ対象となる SQLSTATE です。
const (
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// 書き込みトランザクションは直列化失敗とデッドロック時に maxAttempts 回まで再実行されます。
type TransactionManager struct {
	pool        txStarter
	writeIso    pgx.TxIsoLevel
	maxAttempts int
}

// TxOption は TransactionManager の設定です。
type TxOption func(*TransactionManager)

// WithWriteIsolation は書き込みトランザクションの分離レベルを指定します。
func WithWriteIsolation(level pgx.TxIsoLevel) TxOption {
	return func(m *TransactionManager) { m.writeIso = level }
}

// WithMaxAttempts は書き込みトランザクションの最大試行回数を指定します。
func WithMaxAttempts(n int) TxOption {
	return func(m *TransactionManager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter, opts ...TxOption) *TransactionManager {
	if pool == nil {
		return nil
	}
	m := &TransactionManager{pool: pool, maxAttempts: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithinReadOnly は読み取り専用トランザクションを開始し、fn を実行します。再実行はしません。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, 1, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。
// fn は再実行される可能性があるため、トランザクション外の副作用を持たせないでください。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, pgx.TxOptions{IsoLevel: m.writeIso, AccessMode: pgx.ReadWrite}, m.maxAttempts, fn)
}

func (m *TransactionManager) run(ctx context.Context, opts pgx.TxOptions, attempts int, fn func(context.Context) error) error {
	if fn == nil {
		return errNilTxFunc
	}
	// 外側のトランザクションに参加する。再実行は外側に任せる
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := m.runOnce(ctx, opts, fn)
		if err == nil || attempt >= attempts || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		log.Printf("postgres: retrying transaction (attempt %d/%d): %v", attempt+1, attempts, err)
	}
}

func (m *TransactionManager) runOnce(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(contextWithTx(ctx, tx)); err != nil {
		return rollback(ctx, tx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return rollback(ctx, tx, fmt.Errorf("postgres: commit: %w", err))
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx, cause error) error {
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		return errors.Join(cause, fmt.Errorf("postgres: rollback: %w", rbErr))
	}
	return cause
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode
}

func contextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txContextKey).(pgx.Tx)
	return tx, ok
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
