// Package memory is a storage backend keeping the whole ledger in process
// memory. Transactions work on a deep copy of the store and swap it in on
// commit, which gives the same all-or-nothing settlement as the postgres
// backend. Intended for tests and single-node dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
)

type Repository struct {
	mu    sync.RWMutex
	store *store
}

var _ datagateway.PresaleDataGateway = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{store: newStore()}
}

type store struct {
	state     *entity.SaleState
	accounts  map[string]*entity.Account
	bindings  map[uint64]*entity.ClaimBinding
	purchases []*entity.Purchase
	outbounds []*entity.Outbound
}

func newStore() *store {
	return &store{
		accounts: make(map[string]*entity.Account),
		bindings: make(map[uint64]*entity.ClaimBinding),
	}
}

func (s *store) clone() *store {
	cloned := &store{
		accounts:  make(map[string]*entity.Account, len(s.accounts)),
		bindings:  make(map[uint64]*entity.ClaimBinding, len(s.bindings)),
		purchases: append([]*entity.Purchase(nil), s.purchases...),
		outbounds: append([]*entity.Outbound(nil), s.outbounds...),
	}
	if s.state != nil {
		cloned.state = lo.ToPtr(*s.state)
	}
	for key, account := range s.accounts {
		cloned.accounts[key] = copyAccount(account)
	}
	for qid, binding := range s.bindings {
		cloned.bindings[qid] = lo.ToPtr(*binding)
	}
	return cloned
}

func copyAccount(a *entity.Account) *entity.Account {
	copied := *a
	if a.PendingQid != nil {
		copied.PendingQid = lo.ToPtr(*a.PendingQid)
	}
	if a.PendingUntil != nil {
		copied.PendingUntil = lo.ToPtr(*a.PendingUntil)
	}
	return &copied
}

func (r *Repository) BeginPresaleTx(_ context.Context) (datagateway.PresaleDataGatewayWithTx, error) {
	r.mu.RLock()
	work := r.store.clone()
	r.mu.RUnlock()
	return &repositoryTx{repo: r, store: work}, nil
}

func (r *Repository) GetSaleState(ctx context.Context) (*entity.SaleState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.getSaleState(ctx)
}

func (r *Repository) GetAccount(ctx context.Context, address string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.getAccount(ctx, address)
}

func (r *Repository) GetClaimBinding(ctx context.Context, qid uint64) (*entity.ClaimBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.getClaimBinding(ctx, qid)
}

func (r *Repository) GetPurchasesByAddress(ctx context.Context, address string, limit int32) ([]*entity.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.getPurchasesByAddress(ctx, address, limit)
}

func (r *Repository) GetOutboundsBySeq(ctx context.Context, seq uint64) ([]*entity.Outbound, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.getOutboundsBySeq(ctx, seq)
}

func (s *store) getSaleState(_ context.Context) (*entity.SaleState, error) {
	if s.state == nil {
		return nil, errors.WithStack(errs.NotFound)
	}
	return lo.ToPtr(*s.state), nil
}

func (s *store) getAccount(_ context.Context, address string) (*entity.Account, error) {
	if account, ok := s.accounts[address]; ok {
		return copyAccount(account), nil
	}
	return entity.NewAccount(address), nil
}

func (s *store) getClaimBinding(_ context.Context, qid uint64) (*entity.ClaimBinding, error) {
	binding, ok := s.bindings[qid]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "no claim binding for qid %d", qid)
	}
	return lo.ToPtr(*binding), nil
}

func (s *store) getPurchasesByAddress(_ context.Context, address string, limit int32) ([]*entity.Purchase, error) {
	var result []*entity.Purchase
	for i := len(s.purchases) - 1; i >= 0 && int32(len(result)) < limit; i-- {
		if s.purchases[i].Buyer == address {
			result = append(result, lo.ToPtr(*s.purchases[i]))
		}
	}
	return result, nil
}

func (s *store) getOutboundsBySeq(_ context.Context, seq uint64) ([]*entity.Outbound, error) {
	var result []*entity.Outbound
	for _, outbound := range s.outbounds {
		if outbound.Seq == seq {
			result = append(result, lo.ToPtr(*outbound))
		}
	}
	return result, nil
}

type repositoryTx struct {
	repo  *Repository
	store *store
	done  bool
}

var _ datagateway.PresaleDataGatewayWithTx = (*repositoryTx)(nil)

func (t *repositoryTx) Commit(_ context.Context) error {
	if t.done {
		return errors.Wrap(errs.Closed, "transaction already settled")
	}
	t.repo.mu.Lock()
	t.repo.store = t.store
	t.repo.mu.Unlock()
	t.done = true
	return nil
}

func (t *repositoryTx) Rollback(_ context.Context) error {
	// no-op after commit so it can sit in a defer
	t.done = true
	return nil
}

func (t *repositoryTx) GetSaleState(ctx context.Context) (*entity.SaleState, error) {
	return t.store.getSaleState(ctx)
}

func (t *repositoryTx) GetAccount(ctx context.Context, address string) (*entity.Account, error) {
	return t.store.getAccount(ctx, address)
}

func (t *repositoryTx) GetClaimBinding(ctx context.Context, qid uint64) (*entity.ClaimBinding, error) {
	return t.store.getClaimBinding(ctx, qid)
}

func (t *repositoryTx) GetPurchasesByAddress(ctx context.Context, address string, limit int32) ([]*entity.Purchase, error) {
	return t.store.getPurchasesByAddress(ctx, address, limit)
}

func (t *repositoryTx) GetOutboundsBySeq(ctx context.Context, seq uint64) ([]*entity.Outbound, error) {
	return t.store.getOutboundsBySeq(ctx, seq)
}

func (t *repositoryTx) SetSaleState(_ context.Context, state *entity.SaleState) error {
	t.store.state = lo.ToPtr(*state)
	return nil
}

func (t *repositoryTx) SaveAccount(_ context.Context, account *entity.Account) error {
	t.store.accounts[account.Address] = copyAccount(account)
	return nil
}

func (t *repositoryTx) CreateClaimBinding(_ context.Context, binding *entity.ClaimBinding) error {
	if _, ok := t.store.bindings[binding.Qid]; ok {
		return errors.Wrapf(errs.Duplicate, "qid %d already bound", binding.Qid)
	}
	t.store.bindings[binding.Qid] = lo.ToPtr(*binding)
	return nil
}

func (t *repositoryTx) DeleteClaimBinding(_ context.Context, qid uint64) error {
	if _, ok := t.store.bindings[qid]; !ok {
		return errors.Wrapf(errs.NotFound, "no claim binding for qid %d", qid)
	}
	delete(t.store.bindings, qid)
	return nil
}

func (t *repositoryTx) CreatePurchase(_ context.Context, purchase *entity.Purchase) error {
	t.store.purchases = append(t.store.purchases, lo.ToPtr(*purchase))
	return nil
}

func (t *repositoryTx) CreateOutbound(_ context.Context, outbound *entity.Outbound) error {
	t.store.outbounds = append(t.store.outbounds, lo.ToPtr(*outbound))
	return nil
}
