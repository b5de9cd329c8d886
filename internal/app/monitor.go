package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"whalewatch/clients"
	"whalewatch/clients/bitcoinapi"
	"whalewatch/config"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start when the monitor is active.
var ErrAlreadyRunning = errors.New("monitor already running")

// Status is the operator-facing view of the monitor.
type Status struct {
	Active      bool                       `json:"active"`
	Connections map[Source]ConnectionState `json:"connections"`
}

// Monitor owns the full pipeline: one supervisor per source, the shared
// dedup cache, the threshold table and the alert dispatcher. Supervisors
// hold references to the shared pieces, never copies.
type Monitor struct {
	logger     *zap.Logger
	clients    *clients.Clients
	thresholds Thresholds
	dedup      *DedupCache
	dispatcher *Dispatcher

	ethSupervisor *ConnectionSupervisor
	hlSupervisor  *ConnectionSupervisor
	btcPoller     *PollingSupervisor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	stateMu sync.Mutex
	states  map[Source]ConnectionState

	alertMu     sync.Mutex
	alertCounts map[Source]uint64
	btcTxCount  atomic.Uint64
}

func NewMonitor(c *clients.Clients, cfg *config.Config) (*Monitor, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dedup, err := NewDedupCache(cfg.Dedup.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}

	m := &Monitor{
		logger:      logger,
		clients:     c,
		thresholds:  ThresholdsFromConfig(cfg),
		dedup:       dedup,
		dispatcher:  NewDispatcher(logger, c.Notifier),
		states:      make(map[Source]ConnectionState),
		alertCounts: make(map[Source]uint64),
	}

	if c.Ethereum != nil {
		normalizer := newEthereumNormalizer(logger, c.Ethereum, cfg.Ethereum.LookupTimeout)
		m.ethSupervisor = NewConnectionSupervisor(
			logger,
			SourceEthereum,
			c.Ethereum,
			m.ethereumHandler(normalizer),
			cfg.Reconnect,
			m.recordState,
		)
		m.states[SourceEthereum] = StateDisconnected
	}

	if c.Hyperliquid != nil {
		m.hlSupervisor = NewConnectionSupervisor(
			logger,
			SourceHyperliquid,
			c.Hyperliquid,
			m.hyperliquidHandler,
			cfg.Reconnect,
			m.recordState,
		)
		m.states[SourceHyperliquid] = StateDisconnected
	}

	if c.Bitcoin != nil {
		m.btcPoller = NewPollingSupervisor(
			logger,
			c.Bitcoin,
			m.bitcoinHandler,
			cfg.Bitcoin,
			m.recordState,
		)
		m.states[SourceBitcoin] = StateDisconnected
	}

	// Classification converts native notionals to USD with fixed prices
	// from config, which can drift far from the market.
	logger.Warn("contract/liquidation thresholds use static reference prices, not live quotes",
		zap.Float64("ethUSD", cfg.ReferencePrices.EthUSD),
		zap.Float64("btcUSD", cfg.ReferencePrices.BtcUSD),
	)

	return m, nil
}

// Start launches every configured supervisor. Calling Start while running
// is a no-op that reports ErrAlreadyRunning.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.ethSupervisor != nil {
		if err := m.ethSupervisor.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start ethereum supervisor: %w", err)
		}
	}
	if m.hlSupervisor != nil {
		if err := m.hlSupervisor.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start hyperliquid supervisor: %w", err)
		}
	}
	if m.btcPoller != nil {
		if err := m.btcPoller.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start bitcoin poller: %w", err)
		}
	}

	m.running = true
	m.logger.Info("monitor started", zap.Int("sources", len(m.states)))
	return nil
}

// Stop shuts down every supervisor. Safe to call when some supervisors
// have already stopped on their own, and safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()

	if m.ethSupervisor != nil {
		m.ethSupervisor.Stop()
	}
	if m.hlSupervisor != nil {
		m.hlSupervisor.Stop()
	}
	if m.btcPoller != nil {
		m.btcPoller.Stop()
	}

	m.logger.Info("monitor stopped")
}

// Status reports whether the monitor is active and the connection state
// of every source.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	active := m.running
	m.mu.Unlock()

	m.stateMu.Lock()
	connections := make(map[Source]ConnectionState, len(m.states))
	for src, state := range m.states {
		connections[src] = state
	}
	m.stateMu.Unlock()

	return Status{Active: active, Connections: connections}
}

// DedupSize reports how many keys the shared cache currently holds.
func (m *Monitor) DedupSize() int {
	return m.dedup.Len()
}

// FeedStats is the per-source activity section of the status payload.
// MessageCount is socket frames for push sources and polled transactions
// for bitcoin.
type FeedStats struct {
	MessageCount  uint64    `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	AlertsSent    uint64    `json:"alerts_sent"`
}

// FeedStats reports message and alert counters for every source that has
// a client or has produced activity.
func (m *Monitor) FeedStats() map[Source]FeedStats {
	out := make(map[Source]FeedStats)

	if m.clients.Ethereum != nil {
		s := m.clients.Ethereum.Stats()
		out[SourceEthereum] = FeedStats{MessageCount: s.MessageCount, LastMessageAt: s.LastMessageAt}
	}
	if m.clients.Hyperliquid != nil {
		s := m.clients.Hyperliquid.Stats()
		out[SourceHyperliquid] = FeedStats{MessageCount: s.MessageCount, LastMessageAt: s.LastMessageAt}
	}
	if n := m.btcTxCount.Load(); m.btcPoller != nil || n > 0 {
		out[SourceBitcoin] = FeedStats{MessageCount: n}
	}

	m.alertMu.Lock()
	for src, n := range m.alertCounts {
		fs := out[src]
		fs.AlertsSent = n
		out[src] = fs
	}
	m.alertMu.Unlock()

	return out
}

func (m *Monitor) recordState(source Source, state ConnectionState) {
	m.stateMu.Lock()
	m.states[source] = state
	m.stateMu.Unlock()

	m.logger.Info("connection state changed",
		zap.String("source", string(source)),
		zap.String("state", string(state)),
	)
}

func (m *Monitor) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ethereumHandler resolves pushed hashes in their own goroutine so the
// lookup round-trip never blocks the read loop. A result that lands
// after Stop is discarded.
func (m *Monitor) ethereumHandler(normalizer *ethereumNormalizer) MessageHandler {
	return func(ctx context.Context, raw json.RawMessage) {
		go func() {
			ev, err := normalizer.normalize(ctx, raw)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("dropping ethereum message", zap.Error(err))
				metricParseFailures.WithLabelValues(string(SourceEthereum)).Inc()
				return
			}
			if ev == nil {
				return
			}
			metricEventsNormalized.WithLabelValues(string(SourceEthereum)).Inc()
			m.processEvent(*ev)
		}()
	}
}

func (m *Monitor) hyperliquidHandler(_ context.Context, raw json.RawMessage) {
	events, err := normalizeHyperliquidMsg(raw)
	if err != nil {
		m.logger.Warn("dropping hyperliquid message", zap.Error(err))
		metricParseFailures.WithLabelValues(string(SourceHyperliquid)).Inc()
		return
	}

	for _, ev := range events {
		metricEventsNormalized.WithLabelValues(string(SourceHyperliquid)).Inc()
		m.processEvent(ev)
	}
}

func (m *Monitor) bitcoinHandler(_ context.Context, tx bitcoinapi.Transaction) {
	m.btcTxCount.Add(1)

	ev, ok := normalizeBitcoinTx(tx)
	if !ok {
		return
	}

	metricEventsNormalized.WithLabelValues(string(SourceBitcoin)).Inc()
	m.processEvent(ev)
}

// processEvent runs the shared tail of the pipeline: classify, dedup,
// dispatch.
func (m *Monitor) processEvent(ev WhaleEvent) {
	if !m.isRunning() {
		return
	}

	if m.thresholds.Classify(ev) != VerdictAlert {
		return
	}

	if !m.dedup.ShouldAlert(ev) {
		metricDuplicatesSuppressed.WithLabelValues(string(ev.Source)).Inc()
		return
	}

	m.dispatcher.Dispatch(ev)

	m.alertMu.Lock()
	m.alertCounts[ev.Source]++
	m.alertMu.Unlock()
}
