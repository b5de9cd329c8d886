package bitcoinapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"whalewatch/config"

	"go.uber.org/zap"
)

// BitcoinApiClient fetches block data over the blockchain.info-style REST
// API. Bitcoin has no push feed, so this client is driven by a poll loop.
type BitcoinApiClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

func NewBitcoinApiClient(logger *zap.Logger, cfg *config.Config) *BitcoinApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BitcoinApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.Bitcoin.APIURL,
	}
}

// LatestBlock is the chain tip summary.
type LatestBlock struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
	Time   int64  `json:"time"`
}

// Block is a full block with its transaction list.
type Block struct {
	Hash   string        `json:"hash"`
	Height int64         `json:"height"`
	Time   int64         `json:"time"`
	Txs    []Transaction `json:"tx"`
}

// Transaction is one on-chain transaction.
type Transaction struct {
	Hash    string   `json:"hash"`
	Time    int64    `json:"time"`
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"out"`
}

// Input is a transaction input; Address is empty for coinbase inputs.
type Input struct {
	PrevOut *Output `json:"prev_out"`
}

// Address returns the spending address of the input, if resolvable.
func (i Input) Address() string {
	if i.PrevOut == nil {
		return ""
	}
	return i.PrevOut.Addr
}

// Output is a transaction output. Value is in satoshis.
type Output struct {
	Addr  string `json:"addr"`
	Value int64  `json:"value"`
}

// GetLatestBlock fetches the current chain tip.
func (c *BitcoinApiClient) GetLatestBlock(ctx context.Context) (*LatestBlock, error) {
	u, err := url.JoinPath(c.baseURL, "latestblock")
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}

	var latest LatestBlock
	if err := c.doGet(ctx, u, &latest); err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	return &latest, nil
}

// GetBlockByHeight fetches one block and its transactions.
func (c *BitcoinApiClient) GetBlockByHeight(ctx context.Context, height int64) (*Block, error) {
	u, err := url.JoinPath(c.baseURL, "block-height", fmt.Sprintf("%d", height))
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	u += "?format=json"

	// The endpoint returns every block at that height; with no reorg in
	// flight there is exactly one.
	var resp struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.doGet(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("get block %d: %w", height, err)
	}
	if len(resp.Blocks) == 0 {
		return nil, fmt.Errorf("no block at height %d", height)
	}

	return &resp.Blocks[0], nil
}

func (c *BitcoinApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
