package app

import (
	"context"
	"encoding/json"
	"sync"
	"whalewatch/clients/notifier"
)

// mockTransport scripts successive Connect outcomes and exposes the
// message/error channels for tests to drive.
type mockTransport struct {
	mu          sync.Mutex
	connectErrs []error
	connects    int

	msgCh chan json.RawMessage
	errCh chan error
}

func newMockTransport(connectErrs ...error) *mockTransport {
	return &mockTransport{
		connectErrs: connectErrs,
		msgCh:       make(chan json.RawMessage, 16),
		errCh:       make(chan error, 16),
	}
}

func (t *mockTransport) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.connects < len(t.connectErrs) {
		err = t.connectErrs[t.connects]
	}
	t.connects++
	return err
}

func (t *mockTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

func (t *mockTransport) Messages() <-chan json.RawMessage { return t.msgCh }
func (t *mockTransport) Errors() <-chan error             { return t.errCh }
func (t *mockTransport) Close() error                     { return nil }

// captureNotifier records every alert it receives.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []notifier.WhaleAlert
}

func (n *captureNotifier) SendWhaleAlert(alert notifier.WhaleAlert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *captureNotifier) Close() error { return nil }

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func (n *captureNotifier) last() notifier.WhaleAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alerts[len(n.alerts)-1]
}

// stateRecorder collects connection state transitions.
type stateRecorder struct {
	mu     sync.Mutex
	states []ConnectionState
}

func (r *stateRecorder) record(_ Source, state ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) seen(want ConnectionState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == want {
			return true
		}
	}
	return false
}
