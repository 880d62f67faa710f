package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// something sending SQL.
//
// This is the common subset of `*pgxpool.Pool`, `*pgxpool.Conn` and `pgx.Tx`.
type Queryer interface {
	// sends SQL Command which does not have any result rows.
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)

	// sends SQL Command which has result rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)

	// sends SQL Command which has just single result row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// something begins SQL Transaction
type Begin interface {
	Begin(ctx context.Context) (Tx, error)
}

// subset of `pgx.Tx`.
//
// `pgx.Tx` itself does NOT implement this, since Begin returns pgx.Tx, not Tx.
// To get Tx, call Begin of Pool.
type Tx interface {
	Queryer
	Begin

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// subset of `*pgxpool.Pool`.
//
// To get Pool, Wrap *pgxpool.Pool.
type Pool interface {
	Queryer
	Begin

	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type pgxTx struct {
	base pgx.Tx
}

var _ Tx = &pgxTx{}

func (tx *pgxTx) Begin(ctx context.Context) (Tx, error) {
	nested, err := tx.base.Begin(ctx)
	if nested == nil {
		return nil, err
	}
	return &pgxTx{nested}, err
}

func (tx *pgxTx) Commit(ctx context.Context) error {
	return tx.base.Commit(ctx)
}

func (tx *pgxTx) Rollback(ctx context.Context) error {
	return tx.base.Rollback(ctx)
}

func (tx *pgxTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return tx.base.Exec(ctx, sql, arguments...)
}

func (tx *pgxTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return tx.base.Query(ctx, sql, args...)
}

func (tx *pgxTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return tx.base.QueryRow(ctx, sql, args...)
}

type pgxPool struct {
	base *pgxpool.Pool
}

var _ Pool = &pgxPool{}

func (p *pgxPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.base.Begin(ctx)
	if tx == nil {
		return nil, err
	}
	return &pgxTx{tx}, err
}

func (p *pgxPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error) {
	tx, err := p.base.BeginTx(ctx, txOptions)
	if tx == nil {
		return nil, err
	}
	return &pgxTx{tx}, err
}

func (p *pgxPool) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return p.base.Exec(ctx, sql, arguments...)
}

func (p *pgxPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return p.base.Query(ctx, sql, args...)
}

func (p *pgxPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return p.base.QueryRow(ctx, sql, args...)
}

func (p *pgxPool) Ping(ctx context.Context) error {
	return p.base.Ping(ctx)
}

func (p *pgxPool) Close() {
	p.base.Close()
}

func Wrap(p *pgxpool.Pool) Pool {
	return &pgxPool{p}
}

// Connect creates a new Pool connecting to the database at url.
func Connect(ctx context.Context, url string) (Pool, error) {
	p, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return Wrap(p), nil
}
