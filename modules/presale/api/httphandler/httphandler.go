package httphandler

import (
	"github.com/xssnick/tonutils-go/address"

	"github.com/magnet-network/presale-engine/common"
	"github.com/magnet-network/presale-engine/modules/presale/usecase"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

// resolveAddress normalizes a user-supplied TON address to the ledger's key
// form. Returns false for anything unparseable.
func resolveAddress(wallet string) (string, bool) {
	if wallet == "" {
		return "", false
	}
	addr, err := address.ParseAddr(wallet)
	if err != nil {
		return "", false
	}
	return addr.String(), true
}
