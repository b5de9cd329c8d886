package hyperliquidws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HyperliquidWSClient maintains a subscription to the Hyperliquid public
// feed: a trade stream per coin plus the venue-wide fill and liquidation
// streams.
type HyperliquidWSClient struct {
	logger *zap.Logger

	wsURL        string
	coins        []string
	dialer       *websocket.Dialer
	pingInterval time.Duration

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn

	msgCh   chan json.RawMessage
	errCh   chan error
	closeCh chan struct{}

	msgCount        uint64
	lastMsgUnixNano int64
}

// Envelope is the outer shape of every feed frame.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func NewHyperliquidWSClient(logger *zap.Logger, wsURL string, coins []string) *HyperliquidWSClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HyperliquidWSClient{
		logger:       logger,
		wsURL:        wsURL,
		coins:        coins,
		dialer:       websocket.DefaultDialer,
		pingInterval: 30 * time.Second,

		msgCh:   make(chan json.RawMessage, 1024),
		errCh:   make(chan error, 64),
		closeCh: make(chan struct{}),
	}
}

// Connect dials the feed and sends one subscribe message per stream.
func (c *HyperliquidWSClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	alreadyConnected := c.conn != nil
	c.connMu.Unlock()
	if alreadyConnected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial hyperliquid ws: %w", err)
	}

	c.logger.Info("hyperliquid ws dialed",
		zap.String("url", c.wsURL),
		zap.Int("coins", len(c.coins)),
	)

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn("hyperliquid ws close frame received",
			zap.Int("code", code),
			zap.String("reason", text),
		)
		return nil
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	for _, sub := range c.subscriptions() {
		if err := c.writeJSON(sub); err != nil {
			_ = conn.Close()
			c.connMu.Lock()
			c.conn = nil
			c.connMu.Unlock()
			return fmt.Errorf("send subscription: %w", err)
		}
	}

	c.logger.Info("hyperliquid ws subscriptions sent")

	go c.readLoop()
	go c.pingLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.closeCh:
		}
	}()

	return nil
}

func (c *HyperliquidWSClient) subscriptions() []map[string]any {
	var subs []map[string]any
	for _, coin := range c.coins {
		subs = append(subs, map[string]any{
			"method":       "subscribe",
			"subscription": map[string]any{"type": "trades", "coin": coin},
		})
		subs = append(subs, map[string]any{
			"method":       "subscribe",
			"subscription": map[string]any{"type": "fills", "coin": coin},
		})
	}
	subs = append(subs, map[string]any{
		"method":       "subscribe",
		"subscription": map[string]any{"type": "liquidations"},
	})
	return subs
}

// Messages yields raw feed frames; each is an Envelope.
func (c *HyperliquidWSClient) Messages() <-chan json.RawMessage {
	return c.msgCh
}

func (c *HyperliquidWSClient) Errors() <-chan error {
	return c.errCh
}

// Stats describes socket-level activity since connect.
type Stats struct {
	MessageCount  uint64
	LastMessageAt time.Time
}

func (c *HyperliquidWSClient) Stats() Stats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}

	return Stats{MessageCount: n, LastMessageAt: t}
}

func (c *HyperliquidWSClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.closeCh:
		// Channel was already closed
	default:
		close(c.closeCh)
	}

	// Create fresh channel for potential reconnection
	c.closeCh = make(chan struct{})

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	return err
}

func (c *HyperliquidWSClient) writeJSON(v any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteJSON(v)
}

func (c *HyperliquidWSClient) pingLoop() {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			// The venue expects an application-level ping frame.
			_ = c.writeJSON(map[string]any{"method": "ping"})

		case <-c.closeCh:
			return
		}
	}
}

func (c *HyperliquidWSClient) readLoop() {
	c.logger.Info("hyperliquid ws read loop started")

	for {
		select {
		case <-c.closeCh:
			c.logger.Info("hyperliquid ws read loop exiting: closeCh signaled")
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.logger.Info("hyperliquid ws read loop exiting: conn is nil")
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("hyperliquid ws read loop exiting: read error", zap.Error(err))
			select {
			case c.errCh <- err:
			default:
			}
			_ = c.Close()
			return
		}

		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		var env Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			c.logger.Warn("hyperliquid ws bad json frame", zap.Error(err), zap.ByteString("frame", b))
			continue
		}

		// Acks and keepalive replies are not feed data.
		if env.Channel == "subscriptionResponse" || env.Channel == "pong" {
			continue
		}

		c.forward(append(json.RawMessage(nil), b...))
	}
}

func (c *HyperliquidWSClient) forward(msg json.RawMessage) {
	select {
	case c.msgCh <- msg:
	default:
		c.logger.Warn("dropping hyperliquid ws message: msgCh full")
	}
}
