package ethereumws

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EthereumWSClient maintains a JSON-RPC WebSocket connection to an Ethereum
// node. It carries two kinds of traffic over the one socket: an
// eth_subscribe push feed of pending transaction hashes, and regular
// request/response calls matched to their replies by numeric id.
type EthereumWSClient struct {
	logger *zap.Logger

	wsURL        string
	dialer       *websocket.Dialer
	pingInterval time.Duration

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn

	msgCh   chan json.RawMessage
	errCh   chan error
	closeCh chan struct{}

	// Pending request/response calls keyed by correlation id.
	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse
	nextID    uint64

	subscriptionID string

	msgCount        uint64
	lastMsgUnixNano int64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewEthereumWSClient(logger *zap.Logger, wsURL string) *EthereumWSClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EthereumWSClient{
		logger:       logger,
		wsURL:        wsURL,
		dialer:       websocket.DefaultDialer,
		pingInterval: 30 * time.Second,

		msgCh:   make(chan json.RawMessage, 1024),
		errCh:   make(chan error, 64),
		closeCh: make(chan struct{}),
		pending: make(map[uint64]chan rpcResponse),
	}
}

// Connect dials the node and subscribes to newPendingTransactions. The
// returned error covers both the dial and the subscription ack.
func (c *EthereumWSClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	alreadyConnected := c.conn != nil
	c.connMu.Unlock()
	if alreadyConnected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial ethereum ws: %w", err)
	}

	c.logger.Info("ethereum ws dialed", zap.String("url", c.wsURL))

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn("ethereum ws close frame received",
			zap.Int("code", code),
			zap.String("reason", text),
		)
		return nil
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.readLoop()
	go c.pingLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.closeCh:
		}
	}()

	subCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	result, err := c.Call(subCtx, "eth_subscribe", "newPendingTransactions")
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("subscribe pending transactions: %w", err)
	}

	var subID string
	if err := json.Unmarshal(result, &subID); err != nil {
		_ = c.Close()
		return fmt.Errorf("decode subscription id: %w", err)
	}
	c.subscriptionID = subID

	c.logger.Info("ethereum ws subscribed", zap.String("subscriptionID", subID))

	return nil
}

// Messages yields the push feed: each message is the JSON-encoded hash of a
// newly observed transaction.
func (c *EthereumWSClient) Messages() <-chan json.RawMessage {
	return c.msgCh
}

func (c *EthereumWSClient) Errors() <-chan error {
	return c.errCh
}

// Call performs one JSON-RPC request over the socket and waits for the
// matching response.
func (c *EthereumWSClient) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := atomic.AddUint64(&c.nextID, 1)

	respCh := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if params == nil {
		params = []any{}
	}
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.writeJSON(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-c.closeCh:
		return nil, fmt.Errorf("connection closed waiting for %s", method)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Transaction is the subset of eth_getTransactionByHash we care about.
type Transaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"` // hex wei
	Input string `json:"input"`
}

// Receipt is the subset of eth_getTransactionReceipt we care about.
type Receipt struct {
	Status string       `json:"status"`
	Logs   []ReceiptLog `json:"logs"`
}

// ReceiptLog is one event log entry from a transaction receipt.
type ReceiptLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
}

// TransactionByHash fetches full transaction details for a hash from the
// push feed. Returns (nil, nil) if the node no longer knows the hash.
func (c *EthereumWSClient) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	result, err := c.Call(ctx, "eth_getTransactionByHash", hash)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var tx Transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

// TransactionReceipt fetches the receipt for a mined transaction. Returns
// (nil, nil) while the transaction is still pending.
func (c *EthereumWSClient) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	result, err := c.Call(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

// WeiHexToEth converts a 0x-prefixed hex wei amount into a decimal ETH value.
func WeiHexToEth(hexWei string) (decimal.Decimal, error) {
	s := strings.TrimPrefix(hexWei, "0x")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}

	wei, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid hex value %q", hexWei)
	}

	return decimal.NewFromBigInt(wei, -18), nil
}

// Stats describes socket-level activity since connect.
type Stats struct {
	MessageCount  uint64
	LastMessageAt time.Time
}

func (c *EthereumWSClient) Stats() Stats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}

	return Stats{MessageCount: n, LastMessageAt: t}
}

func (c *EthereumWSClient) Close() error {
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
	c.subscriptionID = ""

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	return err
}

func (c *EthereumWSClient) writeJSON(v any) error {
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

func (c *EthereumWSClient) pingLoop() {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()

			if conn != nil {
				c.writeMu.Lock()
				_ = conn.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
			}

		case <-c.closeCh:
			return
		}
	}
}

func (c *EthereumWSClient) readLoop() {
	c.logger.Info("ethereum ws read loop started")

	for {
		select {
		case <-c.closeCh:
			c.logger.Info("ethereum ws read loop exiting: closeCh signaled")
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.logger.Info("ethereum ws read loop exiting: conn is nil")
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("ethereum ws read loop exiting: read error", zap.Error(err))
			select {
			case c.errCh <- err:
			default:
			}
			_ = c.Close()
			return
		}

		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		c.routeFrame(b)
	}
}

// routeFrame sends a response to its waiting caller, or a subscription
// notification onto the message channel.
func (c *EthereumWSClient) routeFrame(b []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		c.logger.Warn("ethereum ws bad json frame", zap.Error(err), zap.ByteString("frame", b))
		return
	}

	if resp.Method == "eth_subscription" {
		c.forward(append(json.RawMessage(nil), resp.Params.Result...))
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	c.pendingMu.Unlock()

	if !ok {
		// Response to a call that already timed out or was abandoned.
		c.logger.Debug("ethereum ws orphan response", zap.Uint64("id", resp.ID))
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

func (c *EthereumWSClient) forward(msg json.RawMessage) {
	select {
	case c.msgCh <- msg:
	default:
		c.logger.Warn("dropping ethereum ws message: msgCh full")
	}
}
