package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/magnet-network/presale-engine/common/errs"
	postgresclient "github.com/magnet-network/presale-engine/internal/postgres"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

// queries holds the SQL shared by the pool-backed repository and its
// transactions.
type queries struct {
	db postgresclient.Queryable
}

const selectSaleState = `
SELECT owner, jetton_master, jetton_wallet, current_round, current_round_sold,
       total_sold, total_raised, total_claimable, total_pending, total_claimed,
       next_qid, balance, jetton_inventory, processed_seq, deployed_at
FROM presale_sale_state WHERE id = TRUE`

func (q queries) GetSaleState(ctx context.Context) (*entity.SaleState, error) {
	var model saleStateModel
	err := q.db.QueryRow(ctx, selectSaleState).Scan(
		&model.Owner, &model.JettonMaster, &model.JettonWallet, &model.CurrentRound, &model.CurrentRoundSoldNano,
		&model.TotalSoldNano, &model.TotalRaisedNano, &model.TotalClaimableNano, &model.TotalPendingNano, &model.TotalClaimedNano,
		&model.NextQid, &model.BalanceNano, &model.JettonInventoryNano, &model.ProcessedSeq, &model.DeployedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(errs.NotFound, "sale state not initialized")
		}
		return nil, errors.Wrap(err, "failed to query sale state")
	}
	state, err := mapSaleStateModelToType(model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to map sale state")
	}
	return state, nil
}

const upsertSaleState = `
INSERT INTO presale_sale_state (
	id, owner, jetton_master, jetton_wallet, current_round, current_round_sold,
	total_sold, total_raised, total_claimable, total_pending, total_claimed,
	next_qid, balance, jetton_inventory, processed_seq, deployed_at
) VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
	owner = EXCLUDED.owner,
	jetton_master = EXCLUDED.jetton_master,
	jetton_wallet = EXCLUDED.jetton_wallet,
	current_round = EXCLUDED.current_round,
	current_round_sold = EXCLUDED.current_round_sold,
	total_sold = EXCLUDED.total_sold,
	total_raised = EXCLUDED.total_raised,
	total_claimable = EXCLUDED.total_claimable,
	total_pending = EXCLUDED.total_pending,
	total_claimed = EXCLUDED.total_claimed,
	next_qid = EXCLUDED.next_qid,
	balance = EXCLUDED.balance,
	jetton_inventory = EXCLUDED.jetton_inventory,
	processed_seq = EXCLUDED.processed_seq,
	deployed_at = EXCLUDED.deployed_at`

func (q queries) SetSaleState(ctx context.Context, state *entity.SaleState) error {
	numerics, err := numericsFromUint128s(
		state.CurrentRoundSoldNano, state.TotalSoldNano, state.TotalRaisedNano,
		state.TotalClaimableNano, state.TotalPendingNano, state.TotalClaimedNano,
		state.BalanceNano, state.JettonInventoryNano,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = q.db.Exec(ctx, upsertSaleState,
		state.Owner, state.JettonMaster, state.JettonWallet, state.CurrentRound, numerics[0],
		numerics[1], numerics[2], numerics[3], numerics[4], numerics[5],
		int64(state.NextQid), numerics[6], numerics[7], int64(state.ProcessedSeq), timestamptz(state.DeployedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert sale state")
	}
	return nil
}

const selectAccount = `
SELECT address,
       buyer_claimable, buyer_pending, buyer_claimed, buyer_credited,
       referral_claimable, referral_pending, referral_claimed, referral_credited,
       pending_qid, pending_until
FROM presale_accounts WHERE address = $1`

func (q queries) GetAccount(ctx context.Context, address string) (*entity.Account, error) {
	var model accountModel
	err := q.db.QueryRow(ctx, selectAccount, address).Scan(
		&model.Address,
		&model.BuyerClaimableNano, &model.BuyerPendingNano, &model.BuyerClaimedNano, &model.BuyerCreditedNano,
		&model.ReferralClaimableNano, &model.ReferralPendingNano, &model.ReferralClaimedNano, &model.ReferralCreditedNano,
		&model.PendingQid, &model.PendingUntil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// accounts exist implicitly until first credit
			return entity.NewAccount(address), nil
		}
		return nil, errors.Wrap(err, "failed to query account")
	}
	account, err := mapAccountModelToType(model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to map account")
	}
	return account, nil
}

const upsertAccount = `
INSERT INTO presale_accounts (
	address,
	buyer_claimable, buyer_pending, buyer_claimed, buyer_credited,
	referral_claimable, referral_pending, referral_claimed, referral_credited,
	pending_qid, pending_until
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (address) DO UPDATE SET
	buyer_claimable = EXCLUDED.buyer_claimable,
	buyer_pending = EXCLUDED.buyer_pending,
	buyer_claimed = EXCLUDED.buyer_claimed,
	buyer_credited = EXCLUDED.buyer_credited,
	referral_claimable = EXCLUDED.referral_claimable,
	referral_pending = EXCLUDED.referral_pending,
	referral_claimed = EXCLUDED.referral_claimed,
	referral_credited = EXCLUDED.referral_credited,
	pending_qid = EXCLUDED.pending_qid,
	pending_until = EXCLUDED.pending_until`

func (q queries) SaveAccount(ctx context.Context, account *entity.Account) error {
	numerics, err := numericsFromUint128s(
		account.Buyer.ClaimableNano, account.Buyer.PendingNano, account.Buyer.ClaimedNano, account.Buyer.CreditedNano,
		account.Referral.ClaimableNano, account.Referral.PendingNano, account.Referral.ClaimedNano, account.Referral.CreditedNano,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	var pendingQid pgtype.Int8
	if account.PendingQid != nil {
		pendingQid = pgtype.Int8{Int64: int64(*account.PendingQid), Valid: true}
	}
	var pendingUntil pgtype.Timestamptz
	if account.PendingUntil != nil {
		pendingUntil = timestamptz(*account.PendingUntil)
	}

	_, err = q.db.Exec(ctx, upsertAccount,
		account.Address,
		numerics[0], numerics[1], numerics[2], numerics[3],
		numerics[4], numerics[5], numerics[6], numerics[7],
		pendingQid, pendingUntil,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert account")
	}
	return nil
}

func (q queries) GetClaimBinding(ctx context.Context, qid uint64) (*entity.ClaimBinding, error) {
	var (
		address   string
		createdAt pgtype.Timestamptz
	)
	err := q.db.QueryRow(ctx,
		`SELECT address, created_at FROM presale_claim_bindings WHERE qid = $1`,
		int64(qid),
	).Scan(&address, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "no claim binding for qid %d", qid)
		}
		return nil, errors.Wrap(err, "failed to query claim binding")
	}
	binding := &entity.ClaimBinding{Qid: qid, Address: address}
	if createdAt.Valid {
		binding.CreatedAt = createdAt.Time.UTC()
	}
	return binding, nil
}

func (q queries) CreateClaimBinding(ctx context.Context, binding *entity.ClaimBinding) error {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO presale_claim_bindings (qid, address, created_at) VALUES ($1, $2, $3) ON CONFLICT (qid) DO NOTHING`,
		int64(binding.Qid), binding.Address, timestamptz(binding.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert claim binding")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(errs.Duplicate, "qid %d already bound", binding.Qid)
	}
	return nil
}

func (q queries) DeleteClaimBinding(ctx context.Context, qid uint64) error {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM presale_claim_bindings WHERE qid = $1`,
		int64(qid),
	)
	if err != nil {
		return errors.Wrap(err, "failed to delete claim binding")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(errs.NotFound, "no claim binding for qid %d", qid)
	}
	return nil
}

func (q queries) CreatePurchase(ctx context.Context, purchase *entity.Purchase) error {
	numerics, err := numericsFromUint128s(
		purchase.ValueNano, purchase.ConsumedNano, purchase.RefundedNano,
		purchase.BuyerCreditedNano, purchase.ReferralCreditedNano,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = q.db.Exec(ctx, `
INSERT INTO presale_purchases (
	seq, buyer, referral, encoding, value, consumed, refunded,
	buyer_credited, referral_credited, round_after, ts
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		int64(purchase.Seq), purchase.Buyer, purchase.Referral, string(purchase.Encoding),
		numerics[0], numerics[1], numerics[2], numerics[3], numerics[4],
		purchase.RoundAfter, timestamptz(purchase.Timestamp),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert purchase")
	}
	return nil
}

const selectPurchasesByAddress = `
SELECT seq, buyer, referral, encoding, value, consumed, refunded,
       buyer_credited, referral_credited, round_after, ts
FROM presale_purchases WHERE buyer = $1 ORDER BY seq DESC LIMIT $2`

func (q queries) GetPurchasesByAddress(ctx context.Context, address string, limit int32) ([]*entity.Purchase, error) {
	rows, err := q.db.Query(ctx, selectPurchasesByAddress, address, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query purchases")
	}
	defer rows.Close()

	var purchases []*entity.Purchase
	for rows.Next() {
		var model purchaseModel
		if err := rows.Scan(
			&model.Seq, &model.Buyer, &model.Referral, &model.Encoding,
			&model.ValueNano, &model.ConsumedNano, &model.RefundedNano,
			&model.BuyerCreditedNano, &model.ReferralCreditedNano, &model.RoundAfter, &model.Timestamp,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan purchase")
		}
		purchase, err := mapPurchaseModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map purchase")
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate purchases")
	}
	return purchases, nil
}

func (q queries) CreateOutbound(ctx context.Context, outbound *entity.Outbound) error {
	value, err := numericFromUint128(outbound.ValueNano)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = q.db.Exec(ctx, `
INSERT INTO presale_outbounds (seq, kind, dest, value, bounce, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(outbound.Seq), string(outbound.Kind), outbound.Dest, value,
		outbound.Bounce, outbound.BodyBoC, timestamptz(outbound.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert outbound")
	}
	return nil
}

const selectOutboundsBySeq = `
SELECT seq, kind, dest, value, bounce, body, created_at
FROM presale_outbounds WHERE seq = $1 ORDER BY id`

func (q queries) GetOutboundsBySeq(ctx context.Context, seq uint64) ([]*entity.Outbound, error) {
	rows, err := q.db.Query(ctx, selectOutboundsBySeq, int64(seq))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query outbounds")
	}
	defer rows.Close()

	var outbounds []*entity.Outbound
	for rows.Next() {
		var model outboundModel
		if err := rows.Scan(
			&model.Seq, &model.Kind, &model.Dest, &model.ValueNano,
			&model.Bounce, &model.BodyBoC, &model.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan outbound")
		}
		outbound, err := mapOutboundModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map outbound")
		}
		outbounds = append(outbounds, outbound)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate outbounds")
	}
	return outbounds, nil
}

func numericsFromUint128s(values ...uint128.Uint128) ([]pgtype.Numeric, error) {
	numerics := make([]pgtype.Numeric, len(values))
	for i, value := range values {
		numeric, err := numericFromUint128(value)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		numerics[i] = numeric
	}
	return numerics, nil
}
