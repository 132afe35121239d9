package presale

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/xssnick/tonutils-go/address"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/engine"
	"github.com/magnet-network/presale-engine/core/outbox"
	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/modules/presale/config"
	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/errcode"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/modules/presale/internal/ledger"
	"github.com/magnet-network/presale-engine/pkg/logger"
	"github.com/magnet-network/presale-engine/pkg/logger/slogx"
)

// Processor settles inbound messages against the presale ledger, one at a
// time, each in its own storage transaction.
type Processor struct {
	presaleDg datagateway.PresaleDataGateway
	outbox    outbox.Outbox
	config    config.Config

	cleanupFuncs []func(ctx context.Context) error
}

var _ engine.Processor = (*Processor)(nil)

func NewProcessor(cfg config.Config, presaleDg datagateway.PresaleDataGateway, ob outbox.Outbox, cleanupFuncs ...func(ctx context.Context) error) *Processor {
	return &Processor{
		presaleDg:    presaleDg,
		outbox:       ob,
		config:       cfg,
		cleanupFuncs: cleanupFuncs,
	}
}

func (p *Processor) Name() string {
	return "presale"
}

func (p *Processor) Process(ctx context.Context, env *types.InboundEnvelope) error {
	ctx = logger.WithContext(ctx, slog.Uint64("seq", env.Seq))

	msg, err := DecodeInbound(env)
	if err != nil {
		// malformed or semantically invalid body: bounce, keep nothing
		logger.WarnContext(ctx, "Rejecting undecodable message", slogx.Error(err))
		return p.settleBounce(ctx, env)
	}

	emits, err := p.settle(ctx, env, msg)
	if err != nil {
		var exit *errcode.ExitError
		switch {
		case errors.As(err, &exit):
			logger.InfoContext(ctx, "Message rejected",
				slog.String("reason", exit.Name),
				slog.Int("exit_code", int(exit.Code)),
			)
			return p.settleBounce(ctx, env)
		case errors.Is(err, errs.InvalidArgument), errors.Is(err, errs.Unsupported):
			logger.WarnContext(ctx, "Message rejected", slogx.Error(err))
			return p.settleBounce(ctx, env)
		default:
			return errors.Wrap(err, "failed to settle envelope")
		}
	}

	for _, emit := range emits {
		if err := p.outbox.Send(ctx, emit); err != nil {
			return errors.Wrap(err, "failed to send outbound message")
		}
	}
	return nil
}

// settle runs the happy path in one transaction. Returned exit errors roll
// everything back; the caller bounces.
func (p *Processor) settle(ctx context.Context, env *types.InboundEnvelope, msg Message) ([]*types.OutboundMessage, error) {
	tx, err := p.presaleDg.BeginPresaleTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to rollback transaction", slogx.Error(err))
		}
	}()

	state, err := p.loadState(ctx, tx, env, msg)
	if err != nil {
		return nil, err
	}
	if state.ProcessedSeq >= env.Seq && !state.DeployedAt.IsZero() && env.Seq > 0 {
		logger.WarnContext(ctx, "Skipping replayed envelope", slog.Uint64("processed_seq", state.ProcessedSeq))
		return nil, nil
	}

	l := ledger.New(tx)
	var emits []*types.OutboundMessage
	switch m := msg.(type) {
	case BuyMessage:
		emits, err = p.handleBuy(ctx, tx, l, state, env, m)
	case ClaimMessage:
		emits, err = p.handleClaim(ctx, l, state, env)
	case CancelPendingMessage:
		err = p.handleCancelPending(ctx, tx, l, state, env)
	case ResolvePendingMessage:
		err = p.handleResolvePending(ctx, tx, l, state, env, m)
	case SetJettonWalletMessage:
		err = p.handleSetJettonWallet(ctx, state, env, m)
	case WithdrawMessage:
		emits, err = p.handleWithdraw(ctx, state, env, m)
	case WithdrawJettonsMessage:
		emits, err = p.handleWithdrawJettons(ctx, state, env, m)
	case JettonExcessesMessage:
		err = p.handleJettonExcesses(ctx, tx, l, state, env, m)
	case JettonTransferNotificationMessage:
		err = p.handleJettonTransferNotification(ctx, state, env, m)
	case DeployMessage:
		emits, err = p.handleDeploy(ctx, state, env, m)
	case TransferFailedMessage:
		err = p.handleTransferFailed(ctx, tx, l, state, env, m)
	case UnknownMessage:
		if m.Bounced {
			// a bounce of something we no longer track; absorb the value
			logger.WarnContext(ctx, "Absorbing unmatched bounce", slog.Uint64("op", uint64(m.Op)))
			state.BalanceNano = state.BalanceNano.Add(env.ValueNano)
		} else {
			err = errors.Wrapf(errs.Unsupported, "unknown op %#x", m.Op)
		}
	default:
		err = errors.Wrapf(errs.Unsupported, "unhandled message type %T", msg)
	}
	if err != nil {
		return nil, err
	}

	state.ProcessedSeq = env.Seq
	if err := tx.SetSaleState(ctx, state); err != nil {
		return nil, errors.Wrap(err, "failed to save sale state")
	}
	for _, emit := range emits {
		if err := tx.CreateOutbound(ctx, outboundRecord(env, emit)); err != nil {
			return nil, errors.Wrap(err, "failed to record outbound")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return emits, nil
}

// loadState fetches the singleton state, bootstrapping an empty one for the
// Deploy message only.
func (p *Processor) loadState(ctx context.Context, tx datagateway.PresaleDataGatewayWithTx, env *types.InboundEnvelope, msg Message) (*entity.SaleState, error) {
	state, err := tx.GetSaleState(ctx)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return nil, errors.Wrap(err, "failed to get sale state")
	}
	if _, ok := msg.(DeployMessage); !ok {
		return nil, errors.Wrap(errs.InvalidArgument, "contract not deployed")
	}
	return &entity.SaleState{}, nil
}

// settleBounce records the rejection and returns the attached value to the
// sender. Rejections of bounced messages are absorbed instead; bouncing a
// bounce would loop.
func (p *Processor) settleBounce(ctx context.Context, env *types.InboundEnvelope) error {
	tx, err := p.presaleDg.BeginPresaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin bounce transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to rollback bounce transaction", slogx.Error(err))
		}
	}()

	state, err := tx.GetSaleState(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			// nothing deployed, nowhere to account the bounce
			return nil
		}
		return errors.Wrap(err, "failed to get sale state")
	}
	if state.ProcessedSeq >= env.Seq && !state.DeployedAt.IsZero() && env.Seq > 0 {
		logger.WarnContext(ctx, "Skipping replayed envelope", slog.Uint64("processed_seq", state.ProcessedSeq))
		return nil
	}
	state.ProcessedSeq = env.Seq

	var emit *types.OutboundMessage
	if !env.Bounced && env.Sender != nil && !env.ValueNano.IsZero() {
		emit = &types.OutboundMessage{
			Dest:      env.Sender,
			ValueNano: env.ValueNano,
			Bounce:    false,
		}
		if err := tx.CreateOutbound(ctx, &entity.Outbound{
			Seq:       env.Seq,
			Kind:      entity.OutboundKindBounce,
			Dest:      env.Sender.String(),
			ValueNano: env.ValueNano,
			CreatedAt: env.Now,
		}); err != nil {
			return errors.Wrap(err, "failed to record bounce")
		}
	} else {
		// value of a rejected bounce stays with the contract
		state.BalanceNano = state.BalanceNano.Add(env.ValueNano)
	}

	if err := tx.SetSaleState(ctx, state); err != nil {
		return errors.Wrap(err, "failed to save sale state")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit bounce transaction")
	}
	if emit != nil {
		if err := p.outbox.Send(ctx, emit); err != nil {
			return errors.Wrap(err, "failed to send bounce message")
		}
	}
	return nil
}

// VerifyStates checks the ledger's global conservation equation: every token
// base unit ever sold is claimable, pending or claimed, never lost.
func (p *Processor) VerifyStates(ctx context.Context) error {
	state, err := p.presaleDg.GetSaleState(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			logger.InfoContext(ctx, "No sale state yet, starting fresh")
			return nil
		}
		return errors.Wrap(err, "failed to get sale state")
	}

	accounted := state.TotalClaimableNano.Add(state.TotalPendingNano).Add(state.TotalClaimedNano)
	if !accounted.Equals(state.TotalSoldNano) {
		return errors.Wrapf(errcode.ErrClaimableUnderflow,
			"sold %s != claimable+pending+claimed %s", state.TotalSoldNano, accounted)
	}
	logger.InfoContext(ctx, "Sale state verified",
		slog.Int("current_round", int(state.CurrentRound)),
		slog.String("total_sold", state.TotalSoldNano.String()),
		slog.String("total_raised", state.TotalRaisedNano.String()),
		slog.Uint64("processed_seq", state.ProcessedSeq),
	)
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	var errList []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.WithStack(errors.Join(errList...))
}

func outboundRecord(env *types.InboundEnvelope, msg *types.OutboundMessage) *entity.Outbound {
	record := &entity.Outbound{
		Seq:       env.Seq,
		Kind:      outboundKind(msg),
		Dest:      msg.Dest.String(),
		ValueNano: msg.ValueNano,
		Bounce:    msg.Bounce,
		CreatedAt: env.Now,
	}
	if msg.Body != nil {
		record.BodyBoC = msg.Body.ToBOC()
	}
	return record
}

func outboundKind(msg *types.OutboundMessage) entity.OutboundKind {
	if msg.Body == nil {
		return entity.OutboundKindRefund
	}
	op, err := msg.Body.BeginParse().LoadUInt(32)
	if err != nil {
		return entity.OutboundKindRefund
	}
	switch uint32(op) {
	case OpJettonTransfer:
		return entity.OutboundKindJettonTransfer
	case OpDeployOk:
		return entity.OutboundKindDeployOk
	default:
		return entity.OutboundKindPayout
	}
}

// addrKey normalizes an address for use as a ledger key.
func addrKey(addr *address.Address) string {
	return addr.String()
}
