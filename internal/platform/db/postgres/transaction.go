package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type txKey struct{}

// 集計は複数クエリで同じスナップショットを見る必要があるため REPEATABLE READ にします。
var (
	readOnlyOptions  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	readWriteOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
)

type beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Queryer は pgx.Tx と pgxpool.Pool の共通部分です。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TransactionOption は TransactionManager の挙動を変更します。
type TransactionOption func(*TransactionManager)

// WithTxLogger はロールバック失敗などを記録するロガーを設定します。
func WithTxLogger(logger *zap.Logger) TransactionOption {
	return func(m *TransactionManager) {
		if logger != nil {
			m.logger = logger.Named("tx")
		}
	}
}

// TransactionManager は社員・出勤ユースケースのトランザクション境界を提供します。
// 開始したトランザクションは context に載せ、QueryerFromContext 経由でリポジトリが利用します。
type TransactionManager struct {
	db     beginner
	logger *zap.Logger
}

// NewTransactionManager は TransactionManager を生成します。db が nil の場合は nil を返し、
// その場合 WithinReadOnly / WithinReadWrite はトランザクション無しで fn を実行します。
func NewTransactionManager(db beginner, opts ...TransactionOption) *TransactionManager {
	if db == nil {
		return nil
	}
	m := &TransactionManager{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithinReadOnly は統計・一覧取得用の読み取り専用トランザクションで fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, readOnlyOptions, fn)
}

// WithinReadWrite は出勤登録などの書き込みトランザクションで fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, readWriteOptions, fn)
}

func (m *TransactionManager) run(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) (err error) {
	if fn == nil {
		return errors.New("postgres: transaction function is required")
	}
	// 外側のトランザクションがあればそのまま参加する
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin %s tx: %w", opts.AccessMode, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback(ctx)
		if rbErr == nil || errors.Is(rbErr, pgx.ErrTxClosed) {
			return
		}
		m.logger.Warn("rollback failed", zap.String("access_mode", string(opts.AccessMode)), zap.Error(rbErr))
		err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	// Commit が失敗した場合 pgx 側でロールバック済み
	committed = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// QueryerFromContext は context 上のトランザクションを返し、無ければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}
