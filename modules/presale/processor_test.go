package presale

import (
	"context"
	"testing"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/magnet-network/presale-engine/core/outbox"
	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/config"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/modules/presale/repository/memory"
)

var (
	ownerAddr  = testAddr(0xAA)
	masterAddr = testAddr(0xBB)
	walletAddr = testAddr(0xCC)
	buyerAddr  = testAddr(0x01)
	refAddr    = testAddr(0x02)
)

const (
	tonNano     = 1_000_000_000
	gasValue    = 50_000_000
	buyValue    = 200_000_000
	claimValue  = 500_000_000
	fundedStock = 1_000_000 * tonNano
)

type harness struct {
	t    *testing.T
	proc *Processor
	repo *memory.Repository
	out  *outbox.Queue
	seq  uint64
	now  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := memory.NewRepository()
	out := outbox.NewQueue(64)
	cfg := config.Config{
		Database:     "memory",
		Owner:        ownerAddr.String(),
		JettonMaster: masterAddr.String(),
	}
	return &harness{
		t:    t,
		proc: NewProcessor(cfg, repo, out),
		repo: repo,
		out:  out,
		now:  time.Unix(1_700_000_000, 0).UTC(),
	}
}

func (h *harness) process(sender *address.Address, valueNano uint64, body *cell.Cell) []*types.OutboundMessage {
	h.t.Helper()
	h.seq++
	env := &types.InboundEnvelope{
		Seq:       h.seq,
		Sender:    sender,
		ValueNano: uint128.From64(valueNano),
		Now:       h.now,
		Body:      body,
	}
	require.NoError(h.t, h.proc.Process(context.Background(), env))
	return h.out.Drain()
}

func (h *harness) processBounced(valueNano uint64, body *cell.Cell) []*types.OutboundMessage {
	h.t.Helper()
	h.seq++
	env := &types.InboundEnvelope{
		Seq:       h.seq,
		Sender:    walletAddr,
		ValueNano: uint128.From64(valueNano),
		Now:       h.now,
		Bounced:   true,
		Body:      body,
	}
	require.NoError(h.t, h.proc.Process(context.Background(), env))
	return h.out.Drain()
}

// expectRejected runs the envelope and asserts it bounced: the only emitted
// message returns the full attached value to the sender.
func (h *harness) expectRejected(sender *address.Address, valueNano uint64, body *cell.Cell) {
	h.t.Helper()
	emits := h.process(sender, valueNano, body)
	require.Len(h.t, emits, 1, "rejection must emit exactly the bounce")
	assert.Equal(h.t, sender.String(), emits[0].Dest.String())
	assert.Equal(h.t, uint128.From64(valueNano), emits[0].ValueNano)
	assert.Nil(h.t, emits[0].Body)
}

func (h *harness) state() *entity.SaleState {
	h.t.Helper()
	state, err := h.repo.GetSaleState(context.Background())
	require.NoError(h.t, err)
	return state
}

func (h *harness) account(addr *address.Address) *entity.Account {
	h.t.Helper()
	account, err := h.repo.GetAccount(context.Background(), addr.String())
	require.NoError(h.t, err)
	return account
}

// assertConservation checks the global equation: everything ever sold is
// claimable, pending or claimed.
func (h *harness) assertConservation() {
	h.t.Helper()
	state := h.state()
	accounted := state.TotalClaimableNano.Add(state.TotalPendingNano).Add(state.TotalClaimedNano)
	assert.Equal(h.t, state.TotalSoldNano, accounted)
}

func (h *harness) deploy() {
	h.t.Helper()
	emits := h.process(ownerAddr, 10*tonNano, deployBody(1))
	require.Len(h.t, emits, 1)
}

func (h *harness) setWallet() {
	h.t.Helper()
	h.process(ownerAddr, gasValue, setWalletBody(walletAddr))
}

func (h *harness) fund(amountNano uint64) {
	h.t.Helper()
	h.process(walletAddr, gasValue, notificationBody(1, amountNano, ownerAddr))
}

func (h *harness) setup() {
	h.t.Helper()
	h.deploy()
	h.setWallet()
	h.fund(fundedStock)
}

func deployBody(qid uint64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpDeploy), 32).
		MustStoreUInt(qid, 64).
		EndCell()
}

func setWalletBody(wallet *address.Address) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpSetJettonWallet), 32).
		MustStoreAddr(wallet).
		EndCell()
}

func notificationBody(qid, amountNano uint64, sender *address.Address) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpJettonTransferNotification), 32).
		MustStoreUInt(qid, 64).
		MustStoreBigCoins(uint128.From64(amountNano).Big()).
		MustStoreAddr(sender).
		EndCell()
}

func claimBody(qid uint64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpClaim), 32).
		MustStoreUInt(qid, 64).
		EndCell()
}

func excessesBody(qid uint64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpJettonExcesses), 32).
		MustStoreUInt(qid, 64).
		EndCell()
}

func cancelBody() *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpCancelPending), 32).
		EndCell()
}

func resolveBody(user *address.Address, action int64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpResolvePending), 32).
		MustStoreAddr(user).
		MustStoreBigInt(bigInt(action), 257).
		EndCell()
}

func withdrawBody(amountNano int64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpWithdraw), 32).
		MustStoreBigInt(bigInt(amountNano), 257).
		EndCell()
}

func withdrawJettonsBody(to *address.Address, amountNano int64, qid uint64) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpWithdrawJettons), 32).
		MustStoreAddr(to).
		MustStoreBigInt(bigInt(amountNano), 257).
		MustStoreUInt(qid, 64).
		EndCell()
}

func manualBuyBody(ref *address.Address) *cell.Cell {
	b := cell.BeginCell().MustStoreUInt(uint64(OpBuyManual), 32)
	if ref != nil {
		b.MustStoreBoolBit(true).MustStoreAddr(ref)
	} else {
		b.MustStoreBoolBit(false)
	}
	return b.EndCell()
}

func typedBuyBody(ref *address.Address) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(OpBuyTyped), 32).
		MustStoreAddr(ref).
		EndCell()
}

func TestDeployInitializesState(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	state := h.state()
	assert.Equal(t, ownerAddr.String(), state.Owner)
	assert.Equal(t, masterAddr.String(), state.JettonMaster)
	assert.False(t, state.JettonWalletSet())
	assert.Equal(t, int32(0), state.CurrentRound)
	assert.Equal(t, uint128.From64(10*tonNano), state.BalanceNano)
	assert.Equal(t, uint64(1), state.ProcessedSeq)
}

func TestBuyBeforeDeployIsDropped(t *testing.T) {
	h := newHarness(t)
	emits := h.process(buyerAddr, buyValue, nil)
	assert.Empty(t, emits)
}

func TestBuyCreditsBuyerWithBonus(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	// 0.2 TON buys 53 tokens, 5% bonus rounds down to 2 extra
	emits := h.process(buyerAddr, buyValue, nil)
	assert.Empty(t, emits, "sub-dust leftover is kept, not refunded")

	account := h.account(buyerAddr)
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimableNano)
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.CreditedNano)
	assert.True(t, account.Referral.CreditedNano.IsZero())
	assert.False(t, account.HasPending())

	state := h.state()
	assert.Equal(t, uint128.From64(55*tonNano), state.TotalSoldNano)
	assert.Equal(t, uint128.From64(53*3_734_000), state.TotalRaisedNano)
	assert.Equal(t, uint128.From64(53*tonNano), state.CurrentRoundSoldNano)
	assert.Equal(t, int32(0), state.CurrentRound)
	h.assertConservation()
}

func TestBuyRefundsLeftoverAtHighTier(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	// move the cursor to the last tier, where one token costs more than the
	// refund floor
	ctx := context.Background()
	tx, err := h.repo.BeginPresaleTx(ctx)
	require.NoError(t, err)
	state := h.state()
	state.CurrentRound = 19
	require.NoError(t, tx.SetSaleState(ctx, state))
	require.NoError(t, tx.Commit(ctx))

	// 0.2 TON buys 2 tokens at 73,579,000 nanoton each; the 52,842,000
	// remainder goes back to the buyer
	emits := h.process(buyerAddr, buyValue, nil)
	require.Len(t, emits, 1)
	assert.Equal(t, buyerAddr.String(), emits[0].Dest.String())
	assert.Equal(t, uint128.From64(52_842_000), emits[0].ValueNano)
	assert.Nil(t, emits[0].Body)

	account := h.account(buyerAddr)
	assert.Equal(t, uint128.From64(2*tonNano), account.Buyer.CreditedNano, "2 tokens, 5% bonus rounds down to none")

	state = h.state()
	assert.Equal(t, uint128.From64(2*73_579_000), state.TotalRaisedNano)
	assert.Equal(t, uint128.From64(10*tonNano+buyValue-52_842_000), state.BalanceNano)
	h.assertConservation()
}

func TestBuyEncodingsAreEquivalent(t *testing.T) {
	bodies := map[string]*cell.Cell{
		"transfer": nil,
		"manual":   manualBuyBody(nil),
		"typed":    typedBuyBody(nil),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.deploy()
			h.process(buyerAddr, buyValue, body)

			account := h.account(buyerAddr)
			assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimableNano)
		})
	}
}

func TestBuyWithReferral(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	// 1 TON buys 267 tokens; 5% bonus for both sides rounds down to 13
	h.process(buyerAddr, tonNano, typedBuyBody(refAddr))

	buyer := h.account(buyerAddr)
	assert.Equal(t, uint128.From64(280*tonNano), buyer.Buyer.ClaimableNano)
	assert.True(t, buyer.Referral.ClaimableNano.IsZero())

	ref := h.account(refAddr)
	assert.Equal(t, uint128.From64(13*tonNano), ref.Referral.ClaimableNano)
	assert.True(t, ref.Buyer.ClaimableNano.IsZero())

	state := h.state()
	assert.Equal(t, uint128.From64(293*tonNano), state.TotalSoldNano)
	h.assertConservation()
}

func TestBuySelfReferralRejected(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	h.expectRejected(buyerAddr, tonNano, typedBuyBody(buyerAddr))
	assert.True(t, h.account(buyerAddr).CreditedTotalNano().IsZero())
	assert.True(t, h.state().TotalSoldNano.IsZero())
}

func TestBuyBelowMinimumRejected(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	h.expectRejected(buyerAddr, buyValue-1, nil)
	assert.True(t, h.account(buyerAddr).CreditedTotalNano().IsZero())
}

func TestClaimReservesAndEmitsTransfer(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)

	emits := h.process(buyerAddr, claimValue, claimBody(99))
	require.Len(t, emits, 1)
	assert.Equal(t, walletAddr.String(), emits[0].Dest.String())
	assert.Equal(t, uint128.From64(claimValue-100_000_000), emits[0].ValueNano)
	assert.True(t, emits[0].Bounce)
	require.NotNil(t, emits[0].Body)

	account := h.account(buyerAddr)
	require.True(t, account.HasPending())
	assert.Equal(t, uint64(0), *account.PendingQid)
	assert.True(t, account.Buyer.ClaimableNano.IsZero())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.PendingNano)
	require.NotNil(t, account.PendingUntil)
	assert.Equal(t, h.now.Add(PendingTTL), *account.PendingUntil)

	binding, err := h.repo.GetClaimBinding(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, buyerAddr.String(), binding.Address)

	state := h.state()
	assert.True(t, state.TotalClaimableNano.IsZero())
	assert.Equal(t, uint128.From64(55*tonNano), state.TotalPendingNano)
	assert.Equal(t, uint64(1), state.NextQid)
	h.assertConservation()
}

func TestClaimWithoutWalletRejected(t *testing.T) {
	h := newHarness(t)
	h.deploy()
	h.process(buyerAddr, buyValue, nil)

	h.expectRejected(buyerAddr, claimValue, claimBody(1))
	assert.False(t, h.account(buyerAddr).HasPending())
}

func TestClaimWithNothingRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()

	h.expectRejected(buyerAddr, claimValue, claimBody(1))
}

func TestClaimWhilePendingRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	// more credits arrive while the first claim is in flight
	h.process(buyerAddr, buyValue, nil)
	h.expectRejected(buyerAddr, claimValue, claimBody(2))
	h.assertConservation()
}

func TestExcessesFinalizesClaim(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	emits := h.process(walletAddr, 10_000_000, excessesBody(0))
	assert.Empty(t, emits)

	account := h.account(buyerAddr)
	assert.False(t, account.HasPending())
	assert.True(t, account.Buyer.PendingNano.IsZero())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimedNano)

	state := h.state()
	assert.True(t, state.TotalPendingNano.IsZero())
	assert.Equal(t, uint128.From64(55*tonNano), state.TotalClaimedNano)
	assert.Equal(t, uint128.From64(fundedStock-55*tonNano), state.JettonInventoryNano)

	_, err := h.repo.GetClaimBinding(context.Background(), 0)
	assert.Error(t, err)
	h.assertConservation()
}

func TestExcessesIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))
	h.process(walletAddr, 10_000_000, excessesBody(0))

	// duplicate acknowledgement finds no binding and is absorbed
	before := h.account(buyerAddr)
	h.process(walletAddr, 10_000_000, excessesBody(0))
	after := h.account(buyerAddr)
	assert.Equal(t, before.Buyer.ClaimedNano, after.Buyer.ClaimedNano)
	h.assertConservation()
}

func TestUnknownExcessesAbsorbed(t *testing.T) {
	h := newHarness(t)
	h.setup()

	emits := h.process(walletAddr, 10_000_000, excessesBody(777))
	assert.Empty(t, emits)
	h.assertConservation()
}

func TestBouncedTransferRestoresClaim(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	body := EncodeJettonTransfer(0, uint128.From64(55*tonNano), buyerAddr, buyerAddr)
	h.processBounced(claimValue-100_000_000, body)

	account := h.account(buyerAddr)
	assert.False(t, account.HasPending())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimableNano)
	assert.True(t, account.Buyer.ClaimedNano.IsZero())

	state := h.state()
	assert.True(t, state.TotalPendingNano.IsZero())
	assert.Equal(t, uint128.From64(55*tonNano), state.TotalClaimableNano)
	h.assertConservation()

	// the restored balance can be claimed again under a new qid
	emits := h.process(buyerAddr, claimValue, claimBody(2))
	require.Len(t, emits, 1)
	account = h.account(buyerAddr)
	require.True(t, account.HasPending())
	assert.Equal(t, uint64(1), *account.PendingQid)
}

func TestCancelPendingBeforeDeadlineRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.expectRejected(buyerAddr, gasValue, cancelBody())
	assert.True(t, h.account(buyerAddr).HasPending())
}

func TestCancelPendingAfterDeadline(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.now = h.now.Add(PendingTTL + time.Second)
	emits := h.process(buyerAddr, gasValue, cancelBody())
	assert.Empty(t, emits)

	account := h.account(buyerAddr)
	assert.False(t, account.HasPending())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimableNano)
	h.assertConservation()
}

func TestCancelPendingWithoutPendingRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()

	h.expectRejected(buyerAddr, gasValue, cancelBody())
}

func TestResolvePendingOwnerFinalize(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.process(ownerAddr, gasValue, resolveBody(buyerAddr, ResolveActionFinalize))

	account := h.account(buyerAddr)
	assert.False(t, account.HasPending())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimedNano)
	h.assertConservation()
}

func TestResolvePendingOwnerRestore(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	// owner may restore immediately, no deadline applies
	h.process(ownerAddr, gasValue, resolveBody(buyerAddr, ResolveActionRestore))

	account := h.account(buyerAddr)
	assert.False(t, account.HasPending())
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.ClaimableNano)
	h.assertConservation()
}

func TestResolvePendingOwnerUnknownActionRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.expectRejected(ownerAddr, gasValue, resolveBody(buyerAddr, 7))
	assert.True(t, h.account(buyerAddr).HasPending())
}

func TestResolvePendingStrangerRejected(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.expectRejected(refAddr, gasValue, resolveBody(buyerAddr, ResolveActionRestore))
	assert.True(t, h.account(buyerAddr).HasPending())
}

func TestResolvePendingUserRestoreAfterDeadline(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	// too early
	h.expectRejected(buyerAddr, gasValue, resolveBody(buyerAddr, ResolveActionRestore))

	h.now = h.now.Add(PendingTTL + time.Second)
	h.process(buyerAddr, gasValue, resolveBody(buyerAddr, ResolveActionRestore))
	assert.False(t, h.account(buyerAddr).HasPending())
	h.assertConservation()
}

func TestResolvePendingUserCannotFinalize(t *testing.T) {
	h := newHarness(t)
	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))

	h.now = h.now.Add(PendingTTL + time.Second)
	h.expectRejected(buyerAddr, gasValue, resolveBody(buyerAddr, ResolveActionFinalize))
	assert.True(t, h.account(buyerAddr).HasPending())
}

func TestSetJettonWallet(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	t.Run("non-owner rejected", func(t *testing.T) {
		h.expectRejected(buyerAddr, gasValue, setWalletBody(walletAddr))
		assert.False(t, h.state().JettonWalletSet())
	})

	t.Run("owner binds wallet", func(t *testing.T) {
		h.process(ownerAddr, gasValue, setWalletBody(walletAddr))
		state := h.state()
		require.True(t, state.JettonWalletSet())
		assert.Equal(t, walletAddr.String(), state.JettonWallet)
	})

	t.Run("second bind rejected", func(t *testing.T) {
		h.expectRejected(ownerAddr, gasValue, setWalletBody(testAddr(0xDD)))
		assert.Equal(t, walletAddr.String(), h.state().JettonWallet)
	})
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.deploy() // balance 10 TON

	t.Run("non-owner rejected", func(t *testing.T) {
		h.expectRejected(buyerAddr, gasValue, withdrawBody(tonNano))
	})

	t.Run("owner withdraws", func(t *testing.T) {
		emits := h.process(ownerAddr, gasValue, withdrawBody(5*tonNano))
		require.Len(t, emits, 1)
		assert.Equal(t, ownerAddr.String(), emits[0].Dest.String())
		assert.Equal(t, uint128.From64(5*tonNano), emits[0].ValueNano)
	})

	t.Run("reserve protected", func(t *testing.T) {
		// balance is now ~5 TON; taking 4.5 would dip under the reserve
		h.expectRejected(ownerAddr, gasValue, withdrawBody(4*tonNano+500_000_000))
	})

	t.Run("more than balance rejected", func(t *testing.T) {
		h.expectRejected(ownerAddr, gasValue, withdrawBody(100*tonNano))
	})
}

func TestWithdrawJettonsSweep(t *testing.T) {
	h := newHarness(t)
	h.setup()

	t.Run("non-owner rejected", func(t *testing.T) {
		h.expectRejected(buyerAddr, claimValue, withdrawJettonsBody(refAddr, tonNano, 5))
	})

	t.Run("more than inventory rejected", func(t *testing.T) {
		h.expectRejected(ownerAddr, claimValue, withdrawJettonsBody(refAddr, 2*fundedStock, 5))
	})

	t.Run("owner sweeps", func(t *testing.T) {
		emits := h.process(ownerAddr, claimValue, withdrawJettonsBody(refAddr, 100*tonNano, 5))
		require.Len(t, emits, 1)
		assert.Equal(t, walletAddr.String(), emits[0].Dest.String())
		require.NotNil(t, emits[0].Body)

		state := h.state()
		assert.Equal(t, uint128.From64(fundedStock-100*tonNano), state.JettonInventoryNano)
	})
}

func TestInventoryIgnoresUnknownWallet(t *testing.T) {
	h := newHarness(t)
	h.deploy()
	h.setWallet()

	h.process(refAddr, gasValue, notificationBody(1, fundedStock, ownerAddr))
	assert.True(t, h.state().JettonInventoryNano.IsZero())
}

func TestReplayedEnvelopeSkipped(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	env := &types.InboundEnvelope{
		Seq:       h.seq + 1,
		Sender:    buyerAddr,
		ValueNano: uint128.From64(buyValue),
		Now:       h.now,
	}
	require.NoError(t, h.proc.Process(context.Background(), env))
	require.NoError(t, h.proc.Process(context.Background(), env))
	h.out.Drain()

	account := h.account(buyerAddr)
	assert.Equal(t, uint128.From64(55*tonNano), account.Buyer.CreditedNano, "replay must not double-credit")
}

func TestReplayedMalformedEnvelopeSkipped(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	// claim op with the query id missing fails decoding and bounces
	body := cell.BeginCell().MustStoreUInt(uint64(OpClaim), 32).EndCell()
	env := &types.InboundEnvelope{
		Seq:       h.seq + 1,
		Sender:    buyerAddr,
		ValueNano: uint128.From64(gasValue),
		Now:       h.now,
		Body:      body,
	}
	require.NoError(t, h.proc.Process(context.Background(), env))
	require.Len(t, h.out.Drain(), 1, "rejection bounces the attached value")

	require.NoError(t, h.proc.Process(context.Background(), env))
	assert.Empty(t, h.out.Drain(), "replay must not refund twice")
	assert.Equal(t, env.Seq, h.state().ProcessedSeq)
}

func TestVerifyStates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.proc.VerifyStates(context.Background()), "fresh store verifies")

	h.setup()
	h.process(buyerAddr, buyValue, nil)
	h.process(buyerAddr, claimValue, claimBody(1))
	require.NoError(t, h.proc.VerifyStates(context.Background()))
}

func TestUnknownOpRejected(t *testing.T) {
	h := newHarness(t)
	h.deploy()

	body := cell.BeginCell().MustStoreUInt(0xdeadbeef, 32).EndCell()
	h.expectRejected(buyerAddr, gasValue, body)
}
