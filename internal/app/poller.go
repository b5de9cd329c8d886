package app

import (
	"context"
	"fmt"
	"sync"
	"time"
	"whalewatch/clients/bitcoinapi"
	"whalewatch/config"

	"go.uber.org/zap"
)

// BlockFetcher is the slice of the bitcoin API the poller needs.
type BlockFetcher interface {
	GetLatestBlock(ctx context.Context) (*bitcoinapi.LatestBlock, error)
	GetBlockByHeight(ctx context.Context, height int64) (*bitcoinapi.Block, error)
}

// TxHandler processes one bitcoin transaction from a polled block.
type TxHandler func(ctx context.Context, tx bitcoinapi.Transaction)

// PollingSupervisor drives the UTXO chain, which has no push feed: every
// tick it fetches the chain tip and re-scans the last few blocks.
// Overlapping windows deliberately resubmit transactions; the dedup cache
// suppresses re-alerts. A failed tick is logged and skipped, never fatal.
type PollingSupervisor struct {
	logger  *zap.Logger
	client  BlockFetcher
	handler TxHandler
	onState StateListener

	interval time.Duration
	depth    int

	mu     sync.Mutex
	state  ConnectionState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollingSupervisor(
	logger *zap.Logger,
	client BlockFetcher,
	handler TxHandler,
	cfg config.BitcoinConfig,
	onState StateListener,
) *PollingSupervisor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PollingSupervisor{
		logger:   logger,
		client:   client,
		handler:  handler,
		onState:  onState,
		interval: cfg.PollInterval,
		depth:    cfg.BlockDepth,
		state:    StateDisconnected,
	}
}

// Start launches the poll loop. It returns an error if the supervisor is
// already running.
func (p *PollingSupervisor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return fmt.Errorf("bitcoin poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx)
	return nil
}

// Stop cancels the poll loop and waits for it to exit. Safe to call
// repeatedly.
func (p *PollingSupervisor) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		p.setState(StateStopped)
		return
	}

	cancel()
	<-done
}

// State returns the current poller state.
func (p *PollingSupervisor) State() ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PollingSupervisor) run(ctx context.Context) {
	defer close(p.done)

	p.setState(StateConnecting)

	// Poll immediately on start, then on every tick.
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.setState(StateStopped)
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *PollingSupervisor) poll(ctx context.Context) {
	latest, err := p.client.GetLatestBlock(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("bitcoin poll failed, skipping tick", zap.Error(err))
		metricPollFailures.Inc()
		return
	}

	p.setState(StateConnected)

	for height := latest.Height - int64(p.depth) + 1; height <= latest.Height; height++ {
		block, err := p.client.GetBlockByHeight(ctx, height)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("bitcoin block fetch failed, skipping",
				zap.Int64("height", height),
				zap.Error(err),
			)
			metricPollFailures.Inc()
			continue
		}

		for _, tx := range block.Txs {
			p.handler(ctx, tx)
		}
	}
}

func (p *PollingSupervisor) setState(state ConnectionState) {
	p.mu.Lock()
	changed := p.state != state
	p.state = state
	p.mu.Unlock()

	if changed && p.onState != nil {
		p.onState(SourceBitcoin, state)
	}
}
