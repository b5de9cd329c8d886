package app

import (
	"time"
	"whalewatch/clients/bitcoinapi"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// normalizeBitcoinTx turns one polled transaction into a canonical event.
// The notional is the sum of all outputs; counterparties come from the
// first input's and first output's resolvable addresses. Returns false
// for transactions that carry no value.
func normalizeBitcoinTx(tx bitcoinapi.Transaction) (WhaleEvent, bool) {
	if tx.Hash == "" {
		return WhaleEvent{}, false
	}

	var totalSats int64
	for _, out := range tx.Outputs {
		totalSats += out.Value
	}
	if totalSats <= 0 {
		return WhaleEvent{}, false
	}

	from := UnknownParty
	if len(tx.Inputs) > 0 {
		if addr := tx.Inputs[0].Address(); addr != "" {
			from = addr
		}
	}

	to := UnknownParty
	if len(tx.Outputs) > 0 && tx.Outputs[0].Addr != "" {
		to = tx.Outputs[0].Addr
	}

	observed := time.Now()
	if tx.Time > 0 {
		observed = time.Unix(tx.Time, 0)
	}

	return WhaleEvent{
		Source:     SourceBitcoin,
		ID:         tx.Hash,
		From:       from,
		To:         to,
		Notional:   decimal.NewFromFloat(btcutil.Amount(totalSats).ToBTC()),
		ObservedAt: observed,
		Category:   CategorySpot,
	}, true
}
