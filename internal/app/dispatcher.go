package app

import (
	"fmt"
	"whalewatch/clients/notifier"

	"go.uber.org/zap"
)

// Dispatcher turns classified events into notifications. Delivery is
// best-effort: notifier failures are the notifier's to log, and never
// block or fail ingestion.
type Dispatcher struct {
	logger   *zap.Logger
	notifier notifier.Notifier
}

func NewDispatcher(logger *zap.Logger, n notifier.Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, notifier: n}
}

// Dispatch formats and sends one alert.
func (d *Dispatcher) Dispatch(ev WhaleEvent) {
	alert := buildAlert(ev)
	d.notifier.SendWhaleAlert(alert)

	metricAlertsSent.WithLabelValues(string(ev.Source), string(ev.Category)).Inc()

	d.logger.Info("whale alert dispatched",
		zap.String("source", string(ev.Source)),
		zap.String("category", string(ev.Category)),
		zap.String("id", ev.ID),
		zap.String("notional", ev.Notional.String()),
	)
}

func buildAlert(ev WhaleEvent) notifier.WhaleAlert {
	alert := notifier.WhaleAlert{
		Source:      string(ev.Source),
		EventID:     ev.ID,
		From:        ev.From,
		To:          ev.To,
		Amount:      ev.Notional,
		Unit:        nativeUnit(ev.Source),
		Direction:   ev.Direction,
		ExplorerURL: explorerURL(ev),
		Category:    alertCategory(ev.Category),
		Timestamp:   ev.ObservedAt,
	}

	if ev.Venue != nil {
		alert.Symbol = ev.Venue.Symbol
		alert.Side = ev.Venue.Side
		alert.Size = ev.Venue.Size
		alert.Price = ev.Venue.Price
	}

	return alert
}

func alertCategory(c Category) notifier.Category {
	switch c {
	case CategoryContract:
		return notifier.CategoryContract
	case CategoryLiquidation:
		return notifier.CategoryLiquidation
	default:
		return notifier.CategorySpot
	}
}

func nativeUnit(s Source) string {
	switch s {
	case SourceEthereum:
		return "ETH"
	case SourceBitcoin:
		return "BTC"
	default:
		return "USD"
	}
}

// explorerURL links the alert to a block explorer when the event carries
// a real transaction hash.
func explorerURL(ev WhaleEvent) string {
	switch ev.Source {
	case SourceEthereum:
		return fmt.Sprintf("https://etherscan.io/tx/%s", ev.ID)
	case SourceBitcoin:
		return fmt.Sprintf("https://mempool.space/tx/%s", ev.ID)
	case SourceHyperliquid:
		// Synthesized ids have no explorer page.
		if len(ev.ID) > 2 && ev.ID[:2] == "0x" {
			return fmt.Sprintf("https://app.hyperliquid.xyz/explorer/tx/%s", ev.ID)
		}
		return ""
	default:
		return ""
	}
}
