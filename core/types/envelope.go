package types

import (
	"time"

	"github.com/gaze-network/uint128"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// InboundEnvelope is a single inbound message delivered to the contract
// engine. The chain serializes all inbound messages to a given contract, so
// envelopes are processed one at a time in Seq order.
type InboundEnvelope struct {
	// Seq is the logical time of the message. Strictly increasing.
	Seq uint64

	// Sender is the account that sent the message.
	Sender *address.Address

	// ValueNano is the TON value attached to the message, in nanoton.
	ValueNano uint128.Uint128

	// Now is the block time the message is processed at.
	Now time.Time

	// Bounced marks a message that is a bounce of one of our own outbound
	// messages. The body then starts with the original opcode.
	Bounced bool

	// Body is the message body. Nil for a bare value transfer.
	Body *cell.Cell
}

// OutboundMessage is a fire-and-forget message emitted by the engine. Any
// acknowledgement or failure notification arrives later as an independent
// InboundEnvelope.
type OutboundMessage struct {
	Dest      *address.Address
	ValueNano uint128.Uint128
	Bounce    bool
	Body      *cell.Cell
}
