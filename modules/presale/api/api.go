package api

import (
	"github.com/magnet-network/presale-engine/common"
	"github.com/magnet-network/presale-engine/modules/presale/api/httphandler"
	"github.com/magnet-network/presale-engine/modules/presale/usecase"
)

func NewHTTPHandler(network common.Network, usecase *usecase.Usecase) *httphandler.HttpHandler {
	return httphandler.New(network, usecase)
}
