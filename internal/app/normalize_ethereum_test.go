package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	"whalewatch/clients/ethereumws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type mockTxLookup struct {
	txs      map[string]*ethereumws.Transaction
	receipts map[string]*ethereumws.Receipt
	err      error
}

func (m *mockTxLookup) TransactionByHash(_ context.Context, hash string) (*ethereumws.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.txs[hash], nil
}

func (m *mockTxLookup) TransactionReceipt(_ context.Context, hash string) (*ethereumws.Receipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.receipts[hash], nil
}

const aaveV3Pool = "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"

func newTestNormalizer(lookup TxLookup) *ethereumNormalizer {
	return newEthereumNormalizer(zap.NewNop(), lookup, time.Second)
}

func TestEthereumNormalizeSpotTransfer(t *testing.T) {
	lookup := &mockTxLookup{
		txs: map[string]*ethereumws.Transaction{
			"0xabc": {
				Hash:  "0xabc",
				From:  "0xsender",
				To:    "0xreceiver",
				Value: "0x1bc16d674ec80000", // 2 ETH
			},
		},
	}

	ev, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0xabc"`))
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if ev == nil {
		t.Fatal("normalize() returned nil event")
	}

	if ev.Source != SourceEthereum {
		t.Errorf("Source = %q, want %q", ev.Source, SourceEthereum)
	}
	if ev.Category != CategorySpot {
		t.Errorf("Category = %q, want %q", ev.Category, CategorySpot)
	}
	if ev.ID != "0xabc" {
		t.Errorf("ID = %q, want 0xabc", ev.ID)
	}
	if want := decimal.RequireFromString("2"); !ev.Notional.Equal(want) {
		t.Errorf("Notional = %s, want %s", ev.Notional, want)
	}
	if ev.From != "0xsender" || ev.To != "0xreceiver" {
		t.Errorf("parties = %q -> %q", ev.From, ev.To)
	}
}

func TestEthereumNormalizeContractOpen(t *testing.T) {
	lookup := &mockTxLookup{
		txs: map[string]*ethereumws.Transaction{
			"0xdef": {
				Hash:  "0xdef",
				From:  "0xborrower",
				To:    aaveV3Pool,
				Value: "0x56bc75e2d63100000", // 100 ETH
			},
		},
		receipts: map[string]*ethereumws.Receipt{
			"0xdef": {
				Status: "0x1",
				Logs: []ethereumws.ReceiptLog{
					{Topics: []string{"0xb3d084820fb1a9decffb176436bd02558d15fac9b0ddfed8c465bc7359d7dce0"}},
				},
			},
		},
	}

	ev, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0xdef"`))
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if ev == nil {
		t.Fatal("normalize() returned nil event")
	}

	if ev.Category != CategoryContract {
		t.Errorf("Category = %q, want %q", ev.Category, CategoryContract)
	}
	if ev.Direction != "open" {
		t.Errorf("Direction = %q, want open", ev.Direction)
	}
	if ev.Venue == nil || ev.Venue.Symbol != "Aave v3" {
		t.Errorf("Venue = %+v, want Aave v3", ev.Venue)
	}
}

func TestEthereumNormalizeContractClose(t *testing.T) {
	lookup := &mockTxLookup{
		txs: map[string]*ethereumws.Transaction{
			"0xfee": {
				Hash:  "0xfee",
				From:  "0xrepayer",
				To:    aaveV3Pool,
				Value: "0xde0b6b3a7640000", // 1 ETH
			},
		},
		receipts: map[string]*ethereumws.Receipt{
			"0xfee": {
				Status: "0x1",
				Logs: []ethereumws.ReceiptLog{
					{Topics: []string{"0xa534c8dbe71f871f9f3530e97a74601fea17b426cae02e1c5aee42c96c784051"}},
				},
			},
		},
	}

	ev, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0xfee"`))
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if ev == nil {
		t.Fatal("normalize() returned nil event")
	}
	if ev.Direction != "close" {
		t.Errorf("Direction = %q, want close", ev.Direction)
	}
}

func TestEthereumNormalizeUnrecognizedContractCall(t *testing.T) {
	lookup := &mockTxLookup{
		txs: map[string]*ethereumws.Transaction{
			"0x123": {
				Hash:  "0x123",
				To:    aaveV3Pool,
				Value: "0xde0b6b3a7640000",
			},
		},
		receipts: map[string]*ethereumws.Receipt{
			"0x123": {
				Status: "0x1",
				Logs: []ethereumws.ReceiptLog{
					{Topics: []string{"0x0000000000000000000000000000000000000000000000000000000000000000"}},
				},
			},
		},
	}

	ev, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0x123"`))
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if ev != nil {
		t.Errorf("unrecognized contract call should be dropped, got %+v", ev)
	}
}

func TestEthereumNormalizeDrops(t *testing.T) {
	t.Run("missing transaction", func(t *testing.T) {
		ev, err := newTestNormalizer(&mockTxLookup{}).normalize(context.Background(), json.RawMessage(`"0xgone"`))
		if err != nil || ev != nil {
			t.Errorf("got (%+v, %v), want (nil, nil)", ev, err)
		}
	})

	t.Run("zero value", func(t *testing.T) {
		lookup := &mockTxLookup{
			txs: map[string]*ethereumws.Transaction{
				"0xzero": {Hash: "0xzero", Value: "0x0"},
			},
		}
		ev, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0xzero"`))
		if err != nil || ev != nil {
			t.Errorf("got (%+v, %v), want (nil, nil)", ev, err)
		}
	})
}

func TestEthereumNormalizeErrors(t *testing.T) {
	if _, err := newTestNormalizer(&mockTxLookup{}).normalize(context.Background(), json.RawMessage(`{bad`)); err == nil {
		t.Error("malformed frame should error")
	}

	lookup := &mockTxLookup{err: errors.New("socket closed")}
	if _, err := newTestNormalizer(lookup).normalize(context.Background(), json.RawMessage(`"0xabc"`)); err == nil {
		t.Error("lookup failure should propagate")
	}
}
