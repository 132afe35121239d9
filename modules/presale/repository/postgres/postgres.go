package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/magnet-network/presale-engine/internal/postgres"
	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

// Repository is the postgres backend of the presale ledger. Reads run on the
// pool; writes go through BeginPresaleTx.
type Repository struct {
	queries
	db postgres.DB
}

var _ datagateway.PresaleDataGateway = (*Repository)(nil)

func NewRepository(db postgres.DB) *Repository {
	return &Repository{
		queries: queries{db: db},
		db:      db,
	}
}

func (r *Repository) BeginPresaleTx(ctx context.Context) (datagateway.PresaleDataGatewayWithTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &txRepository{queries: queries{db: tx}, tx: tx}, nil
}

type txRepository struct {
	queries
	tx pgx.Tx
}

var _ datagateway.PresaleDataGatewayWithTx = (*txRepository)(nil)

func (t *txRepository) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (t *txRepository) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return errors.Wrap(err, "failed to rollback transaction")
	}
	if err == nil {
		logger.InfoContext(ctx, "rolled back transaction")
	}
	return nil
}
