// Package outbox carries fire-and-forget outbound messages away from the
// engine. Delivery feedback never comes through the outbox; bounces arrive
// later as ordinary inbound envelopes.
package outbox

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/magnet-network/presale-engine/core/types"
	"github.com/magnet-network/presale-engine/pkg/logger"
)

type Outbox interface {
	Send(ctx context.Context, msg *types.OutboundMessage) error
}

// Queue buffers outbound messages for a relay (or a test) to drain.
type Queue struct {
	ch chan *types.OutboundMessage
}

var _ Outbox = (*Queue)(nil)

func NewQueue(buffer int) *Queue {
	return &Queue{ch: make(chan *types.OutboundMessage, buffer)}
}

func (q *Queue) Send(ctx context.Context, msg *types.OutboundMessage) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// Drain returns everything buffered right now without blocking.
func (q *Queue) Drain() []*types.OutboundMessage {
	var msgs []*types.OutboundMessage
	for {
		select {
		case msg := <-q.ch:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// Log drops messages after logging them. Used when no relay is wired.
type Log struct{}

var _ Outbox = Log{}

func (Log) Send(ctx context.Context, msg *types.OutboundMessage) error {
	logger.InfoContext(ctx, "Outbound message",
		slog.String("dest", msg.Dest.String()),
		slog.String("value", msg.ValueNano.String()),
		slog.Bool("bounce", msg.Bounce),
	)
	return nil
}
