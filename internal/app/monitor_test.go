package app

import (
	"context"
	"encoding/json"
	"testing"
	"whalewatch/clients"
	"whalewatch/clients/bitcoinapi"
	"whalewatch/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// newTestMonitor builds a monitor with no live source clients; handlers
// and the pipeline are exercised directly.
func newTestMonitor(t *testing.T, cfg *config.Config) (*Monitor, *captureNotifier) {
	t.Helper()

	capture := &captureNotifier{}
	c := &clients.Clients{
		Logger:   zap.NewNop(),
		Notifier: capture,
	}

	m, err := NewMonitor(c, cfg)
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	return m, capture
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	m, _ := newTestMonitor(t, config.Defaults())

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	m.Stop()
	m.Stop() // repeated Stop is a no-op

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() after Stop() error = %v", err)
	}
	m.Stop()
}

func TestMonitorStatus(t *testing.T) {
	m, _ := newTestMonitor(t, config.Defaults())

	if m.Status().Active {
		t.Error("Active before Start")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.Status().Active {
		t.Error("not Active after Start")
	}

	m.recordState(SourceEthereum, StateConnected)
	if got := m.Status().Connections[SourceEthereum]; got != StateConnected {
		t.Errorf("connection state = %q, want %q", got, StateConnected)
	}

	m.Stop()
	if m.Status().Active {
		t.Error("Active after Stop")
	}
}

func TestMonitorThresholdAndDedup(t *testing.T) {
	cfg := config.Defaults()
	cfg.Ethereum.SpotThresholdETH = 50

	m, capture := newTestMonitor(t, cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	base := WhaleEvent{
		Source:   SourceEthereum,
		From:     "0xa",
		To:       "0xb",
		Category: CategorySpot,
	}

	// At the threshold alerts, just below does not.
	atThreshold := base
	atThreshold.ID = "0x1"
	atThreshold.Notional = decimal.RequireFromString("50")
	m.processEvent(atThreshold)

	below := base
	below.ID = "0x2"
	below.Notional = decimal.RequireFromString("49.99")
	m.processEvent(below)

	if capture.count() != 1 {
		t.Fatalf("alerts sent = %d, want 1", capture.count())
	}

	// Replaying the same event is suppressed.
	m.processEvent(atThreshold)
	if capture.count() != 1 {
		t.Errorf("replay produced %d alerts, want 1", capture.count())
	}
	if m.DedupSize() != 1 {
		t.Errorf("DedupSize() = %d, want 1", m.DedupSize())
	}
}

func TestMonitorDropsEventsWhileStopped(t *testing.T) {
	cfg := config.Defaults()
	cfg.Ethereum.SpotThresholdETH = 1

	m, capture := newTestMonitor(t, cfg)

	m.processEvent(WhaleEvent{
		Source:   SourceEthereum,
		ID:       "0xearly",
		Notional: decimal.RequireFromString("500"),
		Category: CategorySpot,
	})

	if capture.count() != 0 {
		t.Errorf("alert sent while stopped, got %d", capture.count())
	}
}

func TestMonitorHyperliquidHandler(t *testing.T) {
	cfg := config.Defaults()
	cfg.Hyperliquid.SpotThresholdUSD = 250000

	m, capture := newTestMonitor(t, cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	frame := json.RawMessage(`{
		"channel": "trades",
		"data": [
			{"coin":"BTC","side":"B","px":"60000","sz":"5","time":1700000000000,"hash":"0xbig"},
			{"coin":"BTC","side":"B","px":"60000","sz":"0.1","time":1700000001000,"hash":"0xsmall"}
		]
	}`)
	m.hyperliquidHandler(context.Background(), frame)

	if capture.count() != 1 {
		t.Fatalf("alerts sent = %d, want 1", capture.count())
	}
	if got := capture.last().EventID; got != "0xbig" {
		t.Errorf("alerted event = %q, want 0xbig", got)
	}

	// Malformed frames are dropped without disturbing later ones.
	m.hyperliquidHandler(context.Background(), json.RawMessage(`{broken`))
	m.hyperliquidHandler(context.Background(), frame)
	if capture.count() != 1 {
		t.Errorf("replayed frame after bad frame produced %d alerts, want 1", capture.count())
	}
}

func TestMonitorFeedStats(t *testing.T) {
	cfg := config.Defaults()
	cfg.Bitcoin.SpotThresholdBTC = 10
	cfg.Hyperliquid.SpotThresholdUSD = 250000

	m, _ := newTestMonitor(t, cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	m.bitcoinHandler(context.Background(), bitcoinapi.Transaction{
		Hash:    "bigtx",
		Outputs: []bitcoinapi.Output{{Addr: "bc1qwhale", Value: 1_100_000_000}},
	})
	m.bitcoinHandler(context.Background(), bitcoinapi.Transaction{
		Hash:    "smalltx",
		Outputs: []bitcoinapi.Output{{Addr: "bc1qshrimp", Value: 100_000_000}},
	})
	m.hyperliquidHandler(context.Background(), json.RawMessage(`{
		"channel": "trades",
		"data": [{"coin":"BTC","side":"B","px":"60000","sz":"5","time":1700000000000,"hash":"0xbig"}]
	}`))

	stats := m.FeedStats()

	btc := stats[SourceBitcoin]
	if btc.MessageCount != 2 {
		t.Errorf("bitcoin MessageCount = %d, want 2", btc.MessageCount)
	}
	if btc.AlertsSent != 1 {
		t.Errorf("bitcoin AlertsSent = %d, want 1", btc.AlertsSent)
	}

	hl := stats[SourceHyperliquid]
	if hl.AlertsSent != 1 {
		t.Errorf("hyperliquid AlertsSent = %d, want 1", hl.AlertsSent)
	}
}

func TestMonitorBitcoinHandler(t *testing.T) {
	cfg := config.Defaults()
	cfg.Bitcoin.SpotThresholdBTC = 10

	m, capture := newTestMonitor(t, cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	m.bitcoinHandler(context.Background(), bitcoinapi.Transaction{
		Hash: "bigtx",
		Outputs: []bitcoinapi.Output{
			{Addr: "bc1qwhale", Value: 1_100_000_000}, // 11 BTC
		},
	})
	m.bitcoinHandler(context.Background(), bitcoinapi.Transaction{
		Hash: "smalltx",
		Outputs: []bitcoinapi.Output{
			{Addr: "bc1qshrimp", Value: 100_000_000}, // 1 BTC
		},
	})

	if capture.count() != 1 {
		t.Fatalf("alerts sent = %d, want 1", capture.count())
	}
	if got := capture.last().EventID; got != "bigtx" {
		t.Errorf("alerted event = %q, want bigtx", got)
	}
}
