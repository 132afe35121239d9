package presale

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

func testAddr(b byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32))
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

func envelopeWithBody(sender *address.Address, body *cell.Cell) *types.InboundEnvelope {
	return &types.InboundEnvelope{
		Seq:       1,
		Sender:    sender,
		ValueNano: uint128.From64(1_000_000_000),
		Now:       time.Unix(1_700_000_000, 0).UTC(),
		Body:      body,
	}
}

func TestDecodeBareTransferIsBuy(t *testing.T) {
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), nil))
	require.NoError(t, err)
	buy, ok := msg.(BuyMessage)
	require.True(t, ok)
	assert.Nil(t, buy.Referral)
	assert.Equal(t, entity.PurchaseEncodingTransfer, buy.Encoding)
}

func TestDecodeManualBuy(t *testing.T) {
	ref := testAddr(2)

	t.Run("with referral", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpBuyManual), 32).
			MustStoreBoolBit(true).
			MustStoreAddr(ref).
			EndCell()
		msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.NoError(t, err)
		buy, ok := msg.(BuyMessage)
		require.True(t, ok)
		require.NotNil(t, buy.Referral)
		assert.Equal(t, ref.String(), buy.Referral.String())
		assert.Equal(t, entity.PurchaseEncodingManual, buy.Encoding)
	})

	t.Run("without referral", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpBuyManual), 32).
			MustStoreBoolBit(false).
			EndCell()
		msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.NoError(t, err)
		buy, ok := msg.(BuyMessage)
		require.True(t, ok)
		assert.Nil(t, buy.Referral)
	})
}

func TestDecodeTypedBuy(t *testing.T) {
	ref := testAddr(3)

	t.Run("with referral", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpBuyTyped), 32).
			MustStoreAddr(ref).
			EndCell()
		msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.NoError(t, err)
		buy, ok := msg.(BuyMessage)
		require.True(t, ok)
		require.NotNil(t, buy.Referral)
		assert.Equal(t, ref.String(), buy.Referral.String())
		assert.Equal(t, entity.PurchaseEncodingTyped, buy.Encoding)
	})

	t.Run("addr none referral", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpBuyTyped), 32).
			MustStoreAddr(nil).
			EndCell()
		msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.NoError(t, err)
		buy, ok := msg.(BuyMessage)
		require.True(t, ok)
		assert.Nil(t, buy.Referral)
	})
}

func TestDecodeClaim(t *testing.T) {
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpClaim), 32).
		MustStoreUInt(42, 64).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	claim, ok := msg.(ClaimMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(42), claim.QueryID)
}

func TestDecodeResolvePending(t *testing.T) {
	user := testAddr(4)
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpResolvePending), 32).
		MustStoreAddr(user).
		MustStoreBigInt(bigInt(2), 257).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	resolve, ok := msg.(ResolvePendingMessage)
	require.True(t, ok)
	assert.Equal(t, user.String(), resolve.User.String())
	assert.Equal(t, int64(2), resolve.Action)
}

func TestDecodeWithdraw(t *testing.T) {
	t.Run("positive amount", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpWithdraw), 32).
			MustStoreBigInt(bigInt(5_000_000_000), 257).
			EndCell()
		msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.NoError(t, err)
		withdraw, ok := msg.(WithdrawMessage)
		require.True(t, ok)
		assert.Equal(t, uint128.From64(5_000_000_000), withdraw.AmountNano)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		body := cell.BeginCell().
			MustStoreUInt(uint64(OpWithdraw), 32).
			MustStoreBigInt(bigInt(-1), 257).
			EndCell()
		_, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
		require.ErrorIs(t, err, errcode.ErrBadAmount)
	})
}

func TestDecodeWithdrawJettons(t *testing.T) {
	to := testAddr(5)
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpWithdrawJettons), 32).
		MustStoreAddr(to).
		MustStoreBigInt(bigInt(7_000_000_000), 257).
		MustStoreUInt(9, 64).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	sweep, ok := msg.(WithdrawJettonsMessage)
	require.True(t, ok)
	assert.Equal(t, to.String(), sweep.To.String())
	assert.Equal(t, uint128.From64(7_000_000_000), sweep.AmountNano)
	assert.Equal(t, uint64(9), sweep.QueryID)
}

func TestDecodeJettonExcesses(t *testing.T) {
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpJettonExcesses), 32).
		MustStoreUInt(17, 64).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	excesses, ok := msg.(JettonExcessesMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(17), excesses.QueryID)
}

func TestDecodeJettonTransferNotification(t *testing.T) {
	sender := testAddr(6)
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpJettonTransferNotification), 32).
		MustStoreUInt(3, 64).
		MustStoreBigCoins(uint128.From64(123_000_000_000).Big()).
		MustStoreAddr(sender).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	notification, ok := msg.(JettonTransferNotificationMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(3), notification.QueryID)
	assert.Equal(t, uint128.From64(123_000_000_000), notification.AmountNano)
	assert.Equal(t, sender.String(), notification.Sender.String())
}

func TestDecodeBouncedTransfer(t *testing.T) {
	env := envelopeWithBody(testAddr(1), EncodeJettonTransfer(11, uint128.From64(1), testAddr(2), testAddr(2)))
	env.Bounced = true
	msg, err := DecodeInbound(env)
	require.NoError(t, err)
	failed, ok := msg.(TransferFailedMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(11), failed.QueryID)
}

func TestDecodeBouncedUnknownAbsorbed(t *testing.T) {
	body := cell.BeginCell().
		MustStoreUInt(uint64(OpClaim), 32).
		MustStoreUInt(1, 64).
		EndCell()
	env := envelopeWithBody(testAddr(1), body)
	env.Bounced = true
	msg, err := DecodeInbound(env)
	require.NoError(t, err)
	unknown, ok := msg.(UnknownMessage)
	require.True(t, ok)
	assert.True(t, unknown.Bounced)
}

func TestDecodeUnknownOp(t *testing.T) {
	body := cell.BeginCell().
		MustStoreUInt(0xdeadbeef, 32).
		EndCell()
	msg, err := DecodeInbound(envelopeWithBody(testAddr(1), body))
	require.NoError(t, err)
	unknown, ok := msg.(UnknownMessage)
	require.True(t, ok)
	assert.Equal(t, uint32(0xdeadbeef), unknown.Op)
	assert.False(t, unknown.Bounced)
}

func TestEncodeJettonTransferRoundTrip(t *testing.T) {
	to := testAddr(7)
	responseTo := testAddr(8)
	body := EncodeJettonTransfer(21, uint128.From64(55_000_000_000), to, responseTo)

	s := body.BeginParse()
	op, err := s.LoadUInt(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(OpJettonTransfer), op)

	qid, err := s.LoadUInt(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(21), qid)

	amount, err := s.LoadBigCoins()
	require.NoError(t, err)
	assert.Equal(t, "55000000000", amount.String())

	dest, err := s.LoadAddr()
	require.NoError(t, err)
	assert.Equal(t, to.String(), dest.String())
}
