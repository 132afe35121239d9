package memory

import (
	"context"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

func TestCommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tx, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetSaleState(ctx, &entity.SaleState{NextQid: 7}))
	require.NoError(t, tx.SaveAccount(ctx, &entity.Account{
		Address: "buyer",
		Buyer:   entity.TrackBalances{ClaimableNano: uint128.From64(100)},
	}))

	// uncommitted writes are invisible outside the transaction
	_, err = repo.GetSaleState(ctx)
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, tx.Commit(ctx))

	state, err := repo.GetSaleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), state.NextQid)

	account, err := repo.GetAccount(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), account.Buyer.ClaimableNano)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tx, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetSaleState(ctx, &entity.SaleState{NextQid: 7}))
	require.NoError(t, tx.Rollback(ctx))

	_, err = repo.GetSaleState(ctx)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tx, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetSaleState(ctx, &entity.SaleState{NextQid: 1}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))

	_, err = repo.GetSaleState(ctx)
	require.NoError(t, err)
}

func TestTransactionIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	seed, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	require.NoError(t, seed.SaveAccount(ctx, &entity.Account{
		Address: "buyer",
		Buyer:   entity.TrackBalances{ClaimableNano: uint128.From64(100)},
	}))
	require.NoError(t, seed.Commit(ctx))

	// the transaction works on its own copy of the store
	tx, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	account, err := tx.GetAccount(ctx, "buyer")
	require.NoError(t, err)
	account.Buyer.ClaimableNano = uint128.Zero
	require.NoError(t, tx.SaveAccount(ctx, account))

	outside, err := repo.GetAccount(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), outside.Buyer.ClaimableNano)

	require.NoError(t, tx.Commit(ctx))
	outside, err = repo.GetAccount(ctx, "buyer")
	require.NoError(t, err)
	assert.True(t, outside.Buyer.ClaimableNano.IsZero())
}

func TestClaimBindingSemantics(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tx, err := repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	binding := &entity.ClaimBinding{Qid: 1, Address: "buyer"}
	require.NoError(t, tx.CreateClaimBinding(ctx, binding))
	assert.ErrorIs(t, tx.CreateClaimBinding(ctx, binding), errs.Duplicate)

	require.NoError(t, tx.DeleteClaimBinding(ctx, 1))
	assert.ErrorIs(t, tx.DeleteClaimBinding(ctx, 1), errs.NotFound)
	_, err = tx.GetClaimBinding(ctx, 1)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestImplicitZeroAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	account, err := repo.GetAccount(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", account.Address)
	assert.True(t, account.IsZero())
}
