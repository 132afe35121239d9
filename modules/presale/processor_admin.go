package presale

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/xssnick/tonutils-go/address"

	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

// handleDeploy bootstraps the singleton state from the module config and
// acknowledges the deployer. A repeated deploy is acknowledged without
// touching state.
func (p *Processor) handleDeploy(ctx context.Context, state *entity.SaleState, env *types.InboundEnvelope, msg DeployMessage) ([]*types.OutboundMessage, error) {
	if state.DeployedAt.IsZero() {
		owner, err := address.ParseAddr(p.config.Owner)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid owner address %q in config", p.config.Owner)
		}
		master, err := address.ParseAddr(p.config.JettonMaster)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid jetton master address %q in config", p.config.JettonMaster)
		}
		state.Owner = addrKey(owner)
		state.JettonMaster = addrKey(master)
		state.DeployedAt = env.Now
		logger.InfoContext(ctx, "Sale deployed",
			slog.String("owner", state.Owner),
			slog.String("jetton_master", state.JettonMaster),
		)
	}
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)

	var emits []*types.OutboundMessage
	if env.Sender != nil {
		emits = append(emits, &types.OutboundMessage{
			Dest: env.Sender,
			Body: EncodeDeployOk(msg.QueryID),
		})
	}
	return emits, nil
}

// handleSetJettonWallet binds the sale's own jetton wallet. One-shot: the
// binding is immutable once made, so a wrong wallet cannot be papered over.
func (p *Processor) handleSetJettonWallet(ctx context.Context, state *entity.SaleState, env *types.InboundEnvelope, msg SetJettonWalletMessage) error {
	if env.Sender == nil || addrKey(env.Sender) != state.Owner {
		return errors.WithStack(errcode.ErrNotOwner)
	}
	if state.JettonWalletSet() {
		return errors.WithStack(errcode.ErrJettonWalletAlreadySet)
	}
	if msg.Wallet == nil || msg.Wallet.Type() == address.NoneAddress {
		return errors.WithStack(errcode.ErrBadWallet)
	}

	state.JettonWallet = addrKey(msg.Wallet)
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)
	logger.InfoContext(ctx, "Jetton wallet bound", slog.String("wallet", state.JettonWallet))
	return nil
}

// handleWithdraw pays raised TON out to the owner. The contract keeps an
// operating reserve so in-flight claims can still settle.
func (p *Processor) handleWithdraw(ctx context.Context, state *entity.SaleState, env *types.InboundEnvelope, msg WithdrawMessage) ([]*types.OutboundMessage, error) {
	if env.Sender == nil || addrKey(env.Sender) != state.Owner {
		return nil, errors.WithStack(errcode.ErrNotOwner)
	}

	balance := state.BalanceNano.Add(env.ValueNano)
	if balance.Cmp(msg.AmountNano) < 0 {
		return nil, errors.WithStack(errcode.ErrLowBalance)
	}
	floor := withdrawReserve.Add(withdrawGasFloor)
	if balance.Sub(msg.AmountNano).Cmp(floor) < 0 {
		return nil, errors.WithStack(errcode.ErrKeepMinBalance)
	}

	state.BalanceNano = balance.Sub(msg.AmountNano)
	logger.InfoContext(ctx, "Withdrawal", slog.String("amount", msg.AmountNano.String()))
	return []*types.OutboundMessage{{
		Dest:      env.Sender,
		ValueNano: msg.AmountNano,
	}}, nil
}

// handleWithdrawJettons sweeps unsold token stock to an arbitrary address.
// Owner-only and trusted: the destination is not validated beyond parsing.
func (p *Processor) handleWithdrawJettons(ctx context.Context, state *entity.SaleState, env *types.InboundEnvelope, msg WithdrawJettonsMessage) ([]*types.OutboundMessage, error) {
	if env.Sender == nil || addrKey(env.Sender) != state.Owner {
		return nil, errors.WithStack(errcode.ErrNotOwner)
	}
	if !state.JettonWalletSet() {
		return nil, errors.WithStack(errcode.ErrJettonWalletNotSet)
	}
	if msg.To == nil || msg.To.Type() == address.NoneAddress {
		return nil, errors.WithStack(errcode.ErrBadWallet)
	}
	if env.ValueNano.Cmp(minClaimValue) < 0 {
		return nil, errors.WithStack(errcode.ErrAttachMoreTon)
	}
	if state.JettonInventoryNano.Cmp(msg.AmountNano) < 0 {
		return nil, errors.WithStack(errcode.ErrLowBalance)
	}

	wallet, err := address.ParseAddr(state.JettonWallet)
	if err != nil {
		return nil, errors.Wrapf(err, "stored jetton wallet %q is unparseable", state.JettonWallet)
	}

	state.JettonInventoryNano = state.JettonInventoryNano.Sub(msg.AmountNano)
	state.BalanceNano = state.BalanceNano.Add(claimGasReserve)
	logger.InfoContext(ctx, "Jetton sweep",
		slog.String("to", addrKey(msg.To)),
		slog.String("amount", msg.AmountNano.String()),
	)
	return []*types.OutboundMessage{{
		Dest:      wallet,
		ValueNano: env.ValueNano.Sub(claimGasReserve),
		Bounce:    true,
		Body:      EncodeJettonTransfer(msg.QueryID, msg.AmountNano, msg.To, env.Sender),
	}}, nil
}

// handleJettonTransferNotification tracks inventory funding. Only transfers
// landing on the bound wallet count; anything else is logged and absorbed.
func (p *Processor) handleJettonTransferNotification(ctx context.Context, state *entity.SaleState, env *types.InboundEnvelope, msg JettonTransferNotificationMessage) error {
	state.BalanceNano = state.BalanceNano.Add(env.ValueNano)

	if env.Sender != nil && state.JettonWalletSet() && addrKey(env.Sender) == state.JettonWallet {
		state.JettonInventoryNano = state.JettonInventoryNano.Add(msg.AmountNano)
		logger.InfoContext(ctx, "Inventory funded",
			slog.String("amount", msg.AmountNano.String()),
			slog.String("inventory", state.JettonInventoryNano.String()),
		)
		return nil
	}
	logger.WarnContext(ctx, "Ignoring transfer notification from unknown wallet",
		slog.Uint64("qid", msg.QueryID),
		slog.String("amount", msg.AmountNano.String()),
	)
	return nil
}
