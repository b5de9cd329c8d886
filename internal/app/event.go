package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which chain or venue an event came from.
type Source string

const (
	SourceEthereum    Source = "ethereum"
	SourceBitcoin     Source = "bitcoin"
	SourceHyperliquid Source = "hyperliquid"
)

// Category describes what kind of activity an event represents. It is set
// by the normalizer that produced the event and never reinterpreted
// downstream.
type Category string

const (
	CategorySpot        Category = "spot"
	CategoryContract    Category = "contract"
	CategoryLiquidation Category = "liquidation"
)

// ConnectionState is the lifecycle state of one source connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateStopped      ConnectionState = "stopped"
)

// VenueMeta carries perp-venue details for contract and liquidation events.
type VenueMeta struct {
	Symbol string
	Side   string // "long" or "short"
	Size   decimal.Decimal
	Price  decimal.Decimal
}

// WhaleEvent is the canonical event every source normalizes into.
type WhaleEvent struct {
	Source Source
	// ID is unique within its source: a tx hash, or a synthesized
	// venue-symbol-time id when the feed provides no stable identifier.
	ID string

	From string
	To   string

	// Notional is the event's economic size in the source's native unit
	// (ETH, BTC) or USD for the perp venue. Never negative.
	Notional decimal.Decimal

	// ObservedAt is block time when the source provides one, otherwise
	// ingestion time.
	ObservedAt time.Time

	Category Category
	// Direction is "open" or "close" for contract events, empty otherwise.
	Direction string

	// Venue is populated only for contract/liquidation events.
	Venue *VenueMeta
}

// UnknownParty is the placeholder for a counterparty that could not be
// resolved from the wire data.
const UnknownParty = "Unknown"

// DedupKey returns the (source, id) key used for duplicate suppression.
func (e WhaleEvent) DedupKey() string {
	return string(e.Source) + ":" + e.ID
}
