package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a storage transaction, passing the
// backend tx handle as tx.
//
// Repositories accept tx and detect a live transaction implementation-side,
// switching to SELECT ... FOR UPDATE and tx-bound Exec/Query. They MUST
// accept NoTX for the non-transactional path.
//
// USAGE
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		tag, err := tags.LockByToken(ctx, tx, token)
//		...
//		return err
//	})
//
// A non-nil error from fn rolls everything back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
