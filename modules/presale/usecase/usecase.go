package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"

	"github.com/magnet-network/presale-engine/modules/presale/datagateway"
	"github.com/magnet-network/presale-engine/modules/presale/internal/entity"
	"github.com/magnet-network/presale-engine/modules/presale/rounds"
)

// Usecase backs the read-only HTTP surface. It never writes.
type Usecase struct {
	presaleDg datagateway.PresaleReaderDataGateway
}

func New(presaleDg datagateway.PresaleReaderDataGateway) *Usecase {
	return &Usecase{presaleDg: presaleDg}
}

func (u *Usecase) GetSaleState(ctx context.Context) (*entity.SaleState, error) {
	state, err := u.presaleDg.GetSaleState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during GetSaleState")
	}
	return state, nil
}

func (u *Usecase) GetAccount(ctx context.Context, address string) (*entity.Account, error) {
	account, err := u.presaleDg.GetAccount(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "error during GetAccount")
	}
	return account, nil
}

func (u *Usecase) GetPurchasesByAddress(ctx context.Context, address string, limit int32) ([]*entity.Purchase, error) {
	purchases, err := u.presaleDg.GetPurchasesByAddress(ctx, address, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error during GetPurchasesByAddress")
	}
	return purchases, nil
}

// QuotePurchase previews a purchase against the live schedule cursor without
// settling anything.
func (u *Usecase) QuotePurchase(ctx context.Context, valueNano uint128.Uint128) (rounds.Purchase, error) {
	state, err := u.presaleDg.GetSaleState(ctx)
	if err != nil {
		return rounds.Purchase{}, errors.Wrap(err, "error during GetSaleState")
	}
	fill, err := rounds.Fill(state.CurrentRound, state.CurrentRoundSoldNano, valueNano)
	if err != nil {
		return rounds.Purchase{}, errors.Wrap(err, "error during Fill")
	}
	return fill, nil
}

func (u *Usecase) GetRound(_ context.Context, index int32) (rounds.Round, error) {
	round, err := rounds.ByIndex(index)
	if err != nil {
		return rounds.Round{}, errors.WithStack(err)
	}
	return round, nil
}

func (u *Usecase) GetRounds(_ context.Context) []rounds.Round {
	result := make([]rounds.Round, 0, rounds.Count())
	for i := int32(0); i < rounds.Count(); i++ {
		round, _ := rounds.ByIndex(i)
		result = append(result, round)
	}
	return result
}
