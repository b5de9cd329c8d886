package app

import (
	"whalewatch/config"

	"github.com/shopspring/decimal"
)

// Verdict is the classifier's decision for one event.
type Verdict int

const (
	VerdictIgnore Verdict = iota
	VerdictAlert
)

// Thresholds is the per-source threshold table. It is built once from
// config and read-only afterwards, so it needs no synchronization.
type Thresholds struct {
	// Spot thresholds are in the source's native unit.
	Spot map[Source]decimal.Decimal
	// Contract thresholds are in USD.
	Contract map[Source]decimal.Decimal
	// RefPriceUSD converts a source's native unit to USD for
	// contract/liquidation classification. These are static reference
	// prices from config, not live quotes.
	RefPriceUSD map[Source]decimal.Decimal
}

// ThresholdsFromConfig builds the threshold table.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		Spot: map[Source]decimal.Decimal{
			SourceEthereum:    decimal.NewFromFloat(cfg.Ethereum.SpotThresholdETH),
			SourceBitcoin:     decimal.NewFromFloat(cfg.Bitcoin.SpotThresholdBTC),
			SourceHyperliquid: decimal.NewFromFloat(cfg.Hyperliquid.SpotThresholdUSD),
		},
		Contract: map[Source]decimal.Decimal{
			SourceEthereum:    decimal.NewFromFloat(cfg.Ethereum.ContractThresholdUSD),
			SourceHyperliquid: decimal.NewFromFloat(cfg.Hyperliquid.ContractThresholdUSD),
		},
		RefPriceUSD: map[Source]decimal.Decimal{
			SourceEthereum:    decimal.NewFromFloat(cfg.ReferencePrices.EthUSD),
			SourceBitcoin:     decimal.NewFromFloat(cfg.ReferencePrices.BtcUSD),
			SourceHyperliquid: decimal.NewFromInt(1), // already USD
		},
	}
}

// Classify decides whether an event is worth alerting on. Thresholds are
// inclusive: a notional exactly at the threshold alerts.
func (t Thresholds) Classify(ev WhaleEvent) Verdict {
	switch ev.Category {
	case CategorySpot:
		min, ok := t.Spot[ev.Source]
		if !ok {
			return VerdictIgnore
		}
		if ev.Notional.GreaterThanOrEqual(min) {
			return VerdictAlert
		}
		return VerdictIgnore

	case CategoryContract, CategoryLiquidation:
		min, ok := t.Contract[ev.Source]
		if !ok {
			return VerdictIgnore
		}
		if t.EstimateUSD(ev).GreaterThanOrEqual(min) {
			return VerdictAlert
		}
		return VerdictIgnore

	default:
		return VerdictIgnore
	}
}

// EstimateUSD converts an event's native notional to USD using the static
// reference price for its source.
func (t Thresholds) EstimateUSD(ev WhaleEvent) decimal.Decimal {
	price, ok := t.RefPriceUSD[ev.Source]
	if !ok {
		return decimal.Zero
	}
	return ev.Notional.Mul(price)
}
