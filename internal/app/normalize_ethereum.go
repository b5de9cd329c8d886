package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"whalewatch/clients/ethereumws"

	"go.uber.org/zap"
)

// TxLookup is the slice of the ethereum client the normalizer uses for its
// follow-up lookups.
type TxLookup interface {
	TransactionByHash(ctx context.Context, hash string) (*ethereumws.Transaction, error)
	TransactionReceipt(ctx context.Context, hash string) (*ethereumws.Receipt, error)
}

// defiProtocols maps known protocol contract addresses (lowercase) to a
// display name. A transfer into one of these is a candidate contract
// event rather than a plain whale transfer.
var defiProtocols = map[string]string{
	"0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2": "Aave v3",
	"0xc3d688b66703497daa19211eedff47f25384cdc3": "Compound v3",
	"0x777777c9898d384f785ee44acfe945efdff5f3e0": "Morpho",
}

// positionTopics maps event-log topic0 signatures to a position
// direction. Contract calls whose logs match none of these are ignored.
var positionTopics = map[string]string{
	// Aave v3 Borrow
	"0xb3d084820fb1a9decffb176436bd02558d15fac9b0ddfed8c465bc7359d7dce0": "open",
	// Aave v3 Repay
	"0xa534c8dbe71f871f9f3530e97a74601fea17b426cae02e1c5aee42c96c784051": "close",
	// Compound v3 SupplyCollateral
	"0xfa56f7b24f17183d81894d3ac2ee654e3c26388d17a28dbd9549b8114304e1f4": "open",
	// Compound v3 WithdrawCollateral
	"0xd6d480d5b3068db003533b170d67561494d72e3bf9fa40a266471351ebba9e16": "close",
}

// ethereumNormalizer performs the account chain's two-phase
// normalization: the push feed delivers only a transaction hash, and full
// details are fetched with a bounded follow-up lookup over the same
// socket.
type ethereumNormalizer struct {
	logger  *zap.Logger
	lookup  TxLookup
	timeout time.Duration
}

func newEthereumNormalizer(logger *zap.Logger, lookup TxLookup, timeout time.Duration) *ethereumNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ethereumNormalizer{
		logger:  logger,
		lookup:  lookup,
		timeout: timeout,
	}
}

// normalize resolves one pushed hash into a canonical event. Returns
// (nil, nil) for transactions that are gone, valueless, or unrecognized
// contract calls.
func (n *ethereumNormalizer) normalize(ctx context.Context, raw json.RawMessage) (*WhaleEvent, error) {
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return nil, fmt.Errorf("decode tx hash: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	tx, err := n.lookup.TransactionByHash(lookupCtx, hash)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", hash, err)
	}
	if tx == nil {
		// Dropped or replaced before we could fetch it.
		return nil, nil
	}

	value, err := ethereumws.WeiHexToEth(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("parse value of %s: %w", hash, err)
	}
	if value.IsZero() {
		return nil, nil
	}

	from := UnknownParty
	if tx.From != "" {
		from = tx.From
	}
	to := UnknownParty
	if tx.To != "" {
		to = tx.To
	}

	ev := &WhaleEvent{
		Source:     SourceEthereum,
		ID:         hash,
		From:       from,
		To:         to,
		Notional:   value,
		ObservedAt: time.Now(),
		Category:   CategorySpot,
	}

	protocol, isProtocol := defiProtocols[strings.ToLower(tx.To)]
	if !isProtocol {
		return ev, nil
	}

	// Destination is a known protocol: the direction comes from receipt
	// log topics. Calls that match no known signature are not whale
	// transfers, so they are dropped rather than downgraded to spot.
	receipt, err := n.lookup.TransactionReceipt(lookupCtx, hash)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", hash, err)
	}
	if receipt == nil {
		return nil, nil
	}

	direction, ok := matchPositionTopic(receipt)
	if !ok {
		n.logger.Debug("unrecognized contract call ignored",
			zap.String("hash", hash),
			zap.String("protocol", protocol),
		)
		return nil, nil
	}

	ev.Category = CategoryContract
	ev.Direction = direction
	ev.Venue = &VenueMeta{Symbol: protocol}
	return ev, nil
}

// matchPositionTopic scans receipt logs for the first known position
// signature.
func matchPositionTopic(receipt *ethereumws.Receipt) (string, bool) {
	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 {
			continue
		}
		if direction, ok := positionTopics[strings.ToLower(log.Topics[0])]; ok {
			return direction, true
		}
	}
	return "", false
}
