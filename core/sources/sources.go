package sources

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/magnet-network/presale-engine/common/errs"
	"github.com/magnet-network/presale-engine/core/types"
)

// Source produces inbound message envelopes for the engine, in order.
type Source interface {
	Name() string

	// Next blocks until at least one envelope is available, the source is
	// closed, or ctx is done.
	Next(ctx context.Context) ([]*types.InboundEnvelope, error)
}

// Queue is an in-process Source backed by a buffered channel. It is used by
// the gateway that relays chain messages into the engine and by tests.
type Queue struct {
	ch chan *types.InboundEnvelope
}

var _ Source = (*Queue)(nil)

func NewQueue(buffer int) *Queue {
	return &Queue{
		ch: make(chan *types.InboundEnvelope, buffer),
	}
}

func (q *Queue) Name() string {
	return "queue"
}

// Push enqueues an envelope. It blocks when the queue is full.
func (q *Queue) Push(ctx context.Context, env *types.InboundEnvelope) error {
	select {
	case q.ch <- env:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// Close marks the end of the stream. Next returns errs.Closed once drained.
func (q *Queue) Close() {
	close(q.ch)
}

func (q *Queue) Next(ctx context.Context) ([]*types.InboundEnvelope, error) {
	select {
	case env, ok := <-q.ch:
		if !ok {
			return nil, errors.WithStack(errs.Closed)
		}
		envs := []*types.InboundEnvelope{env}
		// drain whatever is immediately available to amortize batch overhead
		for {
			select {
			case env, ok := <-q.ch:
				if !ok {
					return envs, nil
				}
				envs = append(envs, env)
			default:
				return envs, nil
			}
		}
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}
