// Package db is the query layer over the clinical relational schema.
//
// It follows the sqlc layout: a Queries value wraps anything that can run
// statements (a pool, a transaction or a savepoint), so the same methods serve
// bulk chunk transactions and per-row sub-transactions.
package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// ApplySchema creates any missing tables and indexes.
func (q *Queries) ApplySchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, Schema)
	return err
}
