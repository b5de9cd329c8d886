package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"whalewatch/config"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// Transport is one persistent subscription to a push-based source.
// Connect dials and subscribes; a failed connection surfaces on Errors and
// the transport can be Connected again after Close.
type Transport interface {
	Connect(ctx context.Context) error
	Messages() <-chan json.RawMessage
	Errors() <-chan error
	Close() error
}

// MessageHandler processes one raw feed message. Handlers own their error
// handling: a bad message is dropped inside the handler and never
// disturbs the connection.
type MessageHandler func(ctx context.Context, msg json.RawMessage)

// StateListener is notified of every connection state change.
type StateListener func(source Source, state ConnectionState)

// ConnectionSupervisor owns one source's subscription lifecycle: connect,
// pump messages to the handler, and reconnect with exponential backoff
// after transport failures. After maxAttempts consecutive failed attempts
// it gives up and reports Stopped.
type ConnectionSupervisor struct {
	logger    *zap.Logger
	source    Source
	transport Transport
	handler   MessageHandler
	onState   StateListener

	backoff     *backoff.Backoff
	maxAttempts int

	mu     sync.Mutex
	state  ConnectionState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConnectionSupervisor(
	logger *zap.Logger,
	source Source,
	transport Transport,
	handler MessageHandler,
	cfg config.ReconnectConfig,
	onState StateListener,
) *ConnectionSupervisor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConnectionSupervisor{
		logger:    logger,
		source:    source,
		transport: transport,
		handler:   handler,
		onState:   onState,
		backoff: &backoff.Backoff{
			Min:    cfg.BaseDelay,
			Max:    cfg.MaxDelay,
			Factor: 2,
		},
		maxAttempts: cfg.MaxAttempts,
		state:       StateDisconnected,
	}
}

// Start launches the supervisor's run loop. It returns an error if the
// supervisor is already running.
func (s *ConnectionSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("%s supervisor already running", s.source)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
	return nil
}

// Stop shuts the supervisor down: it cancels any pending retry, closes the
// transport and waits for the run loop to exit. Safe to call repeatedly
// and from any state.
func (s *ConnectionSupervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		s.setState(StateStopped)
		return
	}

	cancel()
	_ = s.transport.Close()
	<-done

	s.backoff.Reset()
}

// State returns the current connection state.
func (s *ConnectionSupervisor) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ConnectionSupervisor) run(ctx context.Context) {
	defer close(s.done)
	defer func() { _ = s.transport.Close() }()

	for {
		s.setState(StateConnecting)

		err := s.transport.Connect(ctx)
		if err == nil {
			s.setState(StateConnected)
			// A successful connection resets the attempt counter.
			s.backoff.Reset()

			err = s.pump(ctx)
		}

		if ctx.Err() != nil {
			s.setState(StateStopped)
			return
		}

		s.logger.Warn("source connection lost",
			zap.String("source", string(s.source)),
			zap.Error(err),
		)

		attempt := int(s.backoff.Attempt()) + 1
		if attempt > s.maxAttempts {
			s.logger.Error("max reconnect attempts exceeded, giving up",
				zap.String("source", string(s.source)),
				zap.Int("maxAttempts", s.maxAttempts),
			)
			s.setState(StateStopped)
			return
		}

		delay := s.backoff.Duration()
		s.setState(StateReconnecting)
		metricReconnects.WithLabelValues(string(s.source)).Inc()

		s.logger.Info("scheduling reconnect",
			zap.String("source", string(s.source)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.setState(StateStopped)
			return
		}
	}
}

// pump forwards messages to the handler until the transport fails or the
// context is canceled. Messages from one source are processed in arrival
// order.
func (s *ConnectionSupervisor) pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.transport.Errors():
			return err
		case msg := <-s.transport.Messages():
			s.handler(ctx, msg)
		}
	}
}

func (s *ConnectionSupervisor) setState(state ConnectionState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed && s.onState != nil {
		s.onState(s.source, state)
	}
}
