package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/sources"
	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/pkg/logger"
	"github.com/magnet-network/presale-engine/pkg/logger/slogx"
)

// Processor handles inbound envelopes. Each envelope must be processed
// atomically: either all of its ledger effects are committed, or none are.
type Processor interface {
	Name() string

	// Process handles a single inbound envelope to completion. A returned
	// error is fatal for the engine (e.g. storage failure); message-level
	// rejections are resolved inside (abort + bounce) and do not propagate.
	Process(ctx context.Context, envelope *types.InboundEnvelope) error

	// VerifyStates sanity-checks persisted state on startup.
	VerifyStates(ctx context.Context) error

	Shutdown(ctx context.Context) error
}

// Worker is a long-running engine unit managed by the run command.
type Worker interface {
	Run(ctx context.Context) error
	ShutdownWithTimeout(timeout time.Duration) error
}

// Engine pumps envelopes from a Source into a Processor, strictly one at a
// time. This sequential execution is the only concurrency control the
// ledger needs: per-address checks inside the processor do the rest.
type Engine struct {
	Processor Processor
	Source    sources.Source

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

var _ Worker = (*Engine)(nil)

func New(processor Processor, source sources.Source) *Engine {
	return &Engine{
		Processor: processor,
		Source:    source,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (e *Engine) Shutdown() error {
	return e.ShutdownWithContext(context.Background())
}

func (e *Engine) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.ShutdownWithContext(ctx)
}

func (e *Engine) ShutdownWithContext(ctx context.Context) (err error) {
	e.quitOnce.Do(func() {
		close(e.quit)
		select {
		case <-e.done:
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "engine shutdown context canceled")
		}
	})
	return
}

func (e *Engine) Run(ctx context.Context) (err error) {
	defer close(e.done)

	ctx = logger.WithContext(ctx,
		slog.String("package", "engine"),
		slog.String("processor", e.Processor.Name()),
		slog.String("source", e.Source.Name()),
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-e.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		envelopes, err := e.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, errs.Closed) || errors.Is(err, context.Canceled) {
				logger.InfoContext(ctx, "Engine source drained, stopping")
				if err := e.Processor.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown processor", slogx.Error(err))
					return errors.Wrap(err, "processor shutdown failed")
				}
				return nil
			}
			return errors.Wrap(err, "failed to fetch next envelopes")
		}

		for _, envelope := range envelopes {
			if err := e.Processor.Process(ctx, envelope); err != nil {
				return errors.Wrapf(err, "fatal error while processing envelope seq %d", envelope.Seq)
			}
		}
	}
}
