package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Feed frame shapes. Prices and sizes arrive as strings.
type hlEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type hlTrade struct {
	Coin  string   `json:"coin"`
	Side  string   `json:"side"` // "B" buys, "A" sells
	Px    string   `json:"px"`
	Sz    string   `json:"sz"`
	Time  int64    `json:"time"` // milliseconds
	Hash  string   `json:"hash"`
	Tid   int64    `json:"tid"`
	Users []string `json:"users"`
}

type hlFill struct {
	Coin      string  `json:"coin"`
	Px        string  `json:"px"`
	Sz        string  `json:"sz"`
	Side      string  `json:"side"`
	Time      int64   `json:"time"`
	Hash      string  `json:"hash"`
	User      string  `json:"user"`
	// ClosedPnl is present only when the fill closes (part of) a position.
	ClosedPnl *string `json:"closedPnl"`
}

type hlLiquidation struct {
	Coin string `json:"coin"`
	Side string `json:"side"` // side of the liquidated position
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
	User string `json:"user"`
}

// normalizeHyperliquidMsg parses one feed frame into zero or more
// canonical events. Frames batch multiple records, so a single frame can
// yield several events. Unknown channels yield nothing.
func normalizeHyperliquidMsg(raw json.RawMessage) ([]WhaleEvent, error) {
	var env hlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Channel {
	case "trades":
		return normalizeHlTrades(env.Data)
	case "fills", "userFills":
		return normalizeHlFills(env.Data)
	case "liquidations":
		return normalizeHlLiquidations(env.Data)
	default:
		return nil, nil
	}
}

func normalizeHlTrades(data json.RawMessage) ([]WhaleEvent, error) {
	var trades []hlTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}

	var events []WhaleEvent
	for _, tr := range trades {
		notional, err := notionalFromStrings(tr.Px, tr.Sz)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", tr.Coin, err)
		}

		id := tr.Hash
		if id == "" {
			id = syntheticID(tr.Coin, tr.Side, tr.Time)
		}

		from, to := UnknownParty, UnknownParty
		if len(tr.Users) > 0 && tr.Users[0] != "" {
			from = tr.Users[0]
		}
		if len(tr.Users) > 1 && tr.Users[1] != "" {
			to = tr.Users[1]
		}

		events = append(events, WhaleEvent{
			Source:     SourceHyperliquid,
			ID:         id,
			From:       from,
			To:         to,
			Notional:   notional,
			ObservedAt: time.UnixMilli(tr.Time),
			Category:   CategorySpot,
		})
	}
	return events, nil
}

func normalizeHlFills(data json.RawMessage) ([]WhaleEvent, error) {
	var fills []hlFill
	if err := json.Unmarshal(data, &fills); err != nil {
		return nil, fmt.Errorf("decode fills: %w", err)
	}

	var events []WhaleEvent
	for _, f := range fills {
		notional, err := notionalFromStrings(f.Px, f.Sz)
		if err != nil {
			return nil, fmt.Errorf("fill %s: %w", f.Coin, err)
		}

		direction := "open"
		if f.ClosedPnl != nil {
			direction = "close"
		}

		id := f.Hash
		if id == "" {
			id = syntheticID(f.Coin, f.Side, f.Time)
		}

		size, _ := decimal.NewFromString(f.Sz)
		price, _ := decimal.NewFromString(f.Px)

		from := UnknownParty
		if f.User != "" {
			from = f.User
		}

		events = append(events, WhaleEvent{
			Source:     SourceHyperliquid,
			ID:         id,
			From:       from,
			To:         UnknownParty,
			Notional:   notional,
			ObservedAt: time.UnixMilli(f.Time),
			Category:   CategoryContract,
			Direction:  direction,
			Venue: &VenueMeta{
				Symbol: f.Coin,
				Side:   positionSide(f.Side),
				Size:   size,
				Price:  price,
			},
		})
	}
	return events, nil
}

func normalizeHlLiquidations(data json.RawMessage) ([]WhaleEvent, error) {
	var liqs []hlLiquidation
	if err := json.Unmarshal(data, &liqs); err != nil {
		return nil, fmt.Errorf("decode liquidations: %w", err)
	}

	var events []WhaleEvent
	for _, l := range liqs {
		notional, err := notionalFromStrings(l.Px, l.Sz)
		if err != nil {
			return nil, fmt.Errorf("liquidation %s: %w", l.Coin, err)
		}

		size, _ := decimal.NewFromString(l.Sz)
		price, _ := decimal.NewFromString(l.Px)

		from := UnknownParty
		if l.User != "" {
			from = l.User
		}

		events = append(events, WhaleEvent{
			Source:     SourceHyperliquid,
			ID:         syntheticID(l.Coin, l.Side, l.Time),
			From:       from,
			To:         UnknownParty,
			Notional:   notional,
			ObservedAt: time.UnixMilli(l.Time),
			Category:   CategoryLiquidation,
			Venue: &VenueMeta{
				Symbol: l.Coin,
				Side:   positionSide(l.Side),
				Size:   size,
				Price:  price,
			},
		})
	}
	return events, nil
}

// notionalFromStrings computes size*price as a USD notional.
func notionalFromStrings(px, sz string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(px)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", px)
	}
	size, err := decimal.NewFromString(sz)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid size %q", sz)
	}
	return price.Mul(size), nil
}

// syntheticID builds a stable id for feed records that carry no hash.
func syntheticID(coin, side string, timeMs int64) string {
	return fmt.Sprintf("hl-%s-%s-%d", coin, side, timeMs)
}

// positionSide maps the venue's side flag to long/short.
func positionSide(side string) string {
	switch side {
	case "B":
		return "long"
	case "A":
		return "short"
	default:
		return side
	}
}
