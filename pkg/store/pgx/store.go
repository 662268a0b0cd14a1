// Package pgx implements store.Storage on PostgreSQL via pgxpool.
//
// Edge weights are never stored directly: edge_documents holds one row
// per (owner, pair, document) contribution and weights are counted from
// it, so replayed contributions cannot inflate a weight.
package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casegraph/backend/pkg/store"
)

type Storage struct {
	conn *pgxpool.Pool
}

func New(conn *pgxpool.Pool) *Storage {
	return &Storage{conn: conn}
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Storage) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
