package datagateway

import (
	"context"

	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

// PresaleDataGateway is the storage surface of the presale ledger. Reads are
// allowed on the bare gateway; every write belongs inside a transaction so
// that one inbound message settles atomically.
type PresaleDataGateway interface {
	PresaleReaderDataGateway

	// BeginPresaleTx starts a write transaction. The caller must either
	// Commit or Rollback; Rollback after Commit is a no-op.
	BeginPresaleTx(ctx context.Context) (PresaleDataGatewayWithTx, error)
}

// PresaleReaderDataGateway is the read-only surface, shared by the engine
// and the HTTP getters.
type PresaleReaderDataGateway interface {
	// GetSaleState returns the singleton state. errs.NotFound before deploy.
	GetSaleState(ctx context.Context) (*entity.SaleState, error)

	// GetAccount returns the ledger row for an address. Accounts exist
	// implicitly: an address never seen returns a zero-balance account.
	GetAccount(ctx context.Context, address string) (*entity.Account, error)

	// GetClaimBinding resolves a claim correlation id to its account.
	// errs.NotFound for unknown or already settled qids.
	GetClaimBinding(ctx context.Context, qid uint64) (*entity.ClaimBinding, error)

	// GetPurchasesByAddress returns the buyer's settled purchases, newest
	// first, at most limit rows.
	GetPurchasesByAddress(ctx context.Context, address string, limit int32) ([]*entity.Purchase, error)

	// GetOutboundsBySeq returns the messages emitted while settling the
	// envelope with the given seq.
	GetOutboundsBySeq(ctx context.Context, seq uint64) ([]*entity.Outbound, error)
}

// PresaleDataGatewayWithTx is the transactional write surface.
type PresaleDataGatewayWithTx interface {
	PresaleReaderDataGateway
	Tx

	// SetSaleState stores the singleton state, creating it on first call.
	SetSaleState(ctx context.Context, state *entity.SaleState) error

	// SaveAccount upserts a ledger row.
	SaveAccount(ctx context.Context, account *entity.Account) error

	// CreateClaimBinding registers a qid -> address binding.
	// errs.Duplicate when the qid is already bound.
	CreateClaimBinding(ctx context.Context, binding *entity.ClaimBinding) error

	// DeleteClaimBinding removes a settled binding. Deleting an unknown
	// qid is an error (errs.NotFound); the caller decides the binding
	// exists before settling.
	DeleteClaimBinding(ctx context.Context, qid uint64) error

	// CreatePurchase appends a purchase audit record.
	CreatePurchase(ctx context.Context, purchase *entity.Purchase) error

	// CreateOutbound appends an emitted-message audit record.
	CreateOutbound(ctx context.Context, outbound *entity.Outbound) error
}
