package presale

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/engine"
	"github.com/magnet-network/presale-engine/core/outbox"
	"github.com/magnet-network/presale-engine/core/sources"
	"github.com/magnet-network/presale-engine/internal/config"
	"github.com/magnet-network/presale-engine/internal/postgres"
	presaleapi "github.com/magnet-network/presale-engine/modules/presale/api"
	presaledatagateway "github.com/magnet-network/presale-engine/modules/presale/datagateway"
	presalememory "github.com/magnet-network/presale-engine/modules/presale/repository/memory"
	presalepostgres "github.com/magnet-network/presale-engine/modules/presale/repository/postgres"
	presaleusecase "github.com/magnet-network/presale-engine/modules/presale/usecase"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

// New wires the presale module: storage, processor, HTTP getters and the
// engine pumping envelopes from the configured source.
func New(injector do.Injector) (engine.Worker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	moduleConf := conf.Modules.Presale

	var presaleDg presaledatagateway.PresaleDataGateway
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(moduleConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, moduleConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for presale engine")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		presaleDg = presalepostgres.NewRepository(pg)
	case "memory":
		presaleDg = presalememory.NewRepository()
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for presale engine is not supported", moduleConf.Database)
	}

	source := do.MustInvoke[sources.Source](injector)
	ob := do.MustInvoke[outbox.Outbox](injector)

	processor := NewProcessor(moduleConf, presaleDg, ob, cleanupFuncs...)
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	// Mount API
	apiHandlers := lo.Uniq(moduleConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			presaleUsecase := presaleusecase.New(presaleDg)
			presaleHTTPHandler := presaleapi.NewHTTPHandler(conf.Network, presaleUsecase)
			if err := presaleHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount presale API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return engine.New(processor, source), nil
}
