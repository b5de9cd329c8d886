package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Discord
	Discord DiscordConfig `json:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram"`

	// Per-source monitoring
	Ethereum    EthereumConfig    `json:"ethereum"`
	Bitcoin     BitcoinConfig     `json:"bitcoin"`
	Hyperliquid HyperliquidConfig `json:"hyperliquid"`

	// Connection recovery
	Reconnect ReconnectConfig `json:"reconnect"`

	// Duplicate suppression
	Dedup DedupConfig `json:"dedup"`

	// Static reference prices used to estimate USD notionals for
	// contract/liquidation thresholds. These are NOT live quotes.
	ReferencePrices ReferencePricesConfig `json:"reference_prices"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id"`
}

// EthereumConfig holds account-chain subscription configuration.
type EthereumConfig struct {
	Enabled bool   `json:"enabled"`
	WSURL   string `json:"ws_url"`

	// SpotThresholdETH is the minimum plain-transfer value (in ETH) to alert on.
	SpotThresholdETH float64 `json:"spot_threshold_eth"`
	// ContractThresholdUSD is the minimum estimated USD notional for
	// contract interaction alerts.
	ContractThresholdUSD float64 `json:"contract_threshold_usd"`

	// LookupTimeout bounds the follow-up transaction lookup.
	LookupTimeout time.Duration `json:"lookup_timeout"`
}

// BitcoinConfig holds UTXO-chain polling configuration.
type BitcoinConfig struct {
	Enabled bool   `json:"enabled"`
	APIURL  string `json:"api_url"`

	PollInterval time.Duration `json:"poll_interval"`
	// BlockDepth is how many recent blocks each tick re-scans. Two blocks
	// covers depth-1 reorgs and overlapping poll windows.
	BlockDepth int `json:"block_depth"`

	SpotThresholdBTC float64 `json:"spot_threshold_btc"`
}

// HyperliquidConfig holds perp-venue feed configuration.
type HyperliquidConfig struct {
	Enabled bool   `json:"enabled"`
	WSURL   string `json:"ws_url"`
	// Coins to subscribe trade feeds for.
	Coins []string `json:"coins"`

	SpotThresholdUSD     float64 `json:"spot_threshold_usd"`
	ContractThresholdUSD float64 `json:"contract_threshold_usd"`
}

// ReconnectConfig holds shared reconnect/backoff configuration.
type ReconnectConfig struct {
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	MaxAttempts int           `json:"max_attempts"`
}

// DedupConfig holds duplicate-alert suppression configuration.
type DedupConfig struct {
	MaxSize int `json:"max_size"`
}

// ReferencePricesConfig holds the assumed USD prices used for threshold
// classification of contract and liquidation events.
type ReferencePricesConfig struct {
	EthUSD float64 `json:"eth_usd"`
	BtcUSD float64 `json:"btc_usd"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd:   false,
		Discord:  DiscordConfig{},
		Telegram: TelegramConfig{},
		Ethereum: EthereumConfig{
			Enabled:              true,
			WSURL:                "wss://ethereum-rpc.publicnode.com",
			SpotThresholdETH:     100.0,
			ContractThresholdUSD: 250000.0,
			LookupTimeout:        10 * time.Second,
		},
		Bitcoin: BitcoinConfig{
			Enabled:          true,
			APIURL:           "https://blockchain.info",
			PollInterval:     30 * time.Second,
			BlockDepth:       2,
			SpotThresholdBTC: 10.0,
		},
		Hyperliquid: HyperliquidConfig{
			Enabled:              true,
			WSURL:                "wss://api.hyperliquid.xyz/ws",
			Coins:                []string{"BTC", "ETH", "SOL"},
			SpotThresholdUSD:     250000.0,
			ContractThresholdUSD: 50000.0,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   10 * time.Second,
			MaxDelay:    60 * time.Second,
			MaxAttempts: 5,
		},
		Dedup: DedupConfig{
			MaxSize: 1000,
		},
		ReferencePrices: ReferencePricesConfig{
			EthUSD: 3000.0,
			BtcUSD: 60000.0,
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load reads configuration from environment variables, falling back to
// Defaults for anything unset.
func Load() *Config {
	d := Defaults()

	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Ethereum: EthereumConfig{
			Enabled:              envBoolDefault("ETH_ENABLED", d.Ethereum.Enabled),
			WSURL:                envString("ETH_WS_URL", d.Ethereum.WSURL),
			SpotThresholdETH:     envFloat("ETH_SPOT_THRESHOLD", d.Ethereum.SpotThresholdETH),
			ContractThresholdUSD: envFloat("ETH_CONTRACT_THRESHOLD_USD", d.Ethereum.ContractThresholdUSD),
			LookupTimeout:        envDuration("ETH_LOOKUP_TIMEOUT", d.Ethereum.LookupTimeout),
		},

		Bitcoin: BitcoinConfig{
			Enabled:          envBoolDefault("BTC_ENABLED", d.Bitcoin.Enabled),
			APIURL:           envString("BTC_API_URL", d.Bitcoin.APIURL),
			PollInterval:     envDuration("BTC_POLL_INTERVAL", d.Bitcoin.PollInterval),
			BlockDepth:       envInt("BTC_BLOCK_DEPTH", d.Bitcoin.BlockDepth),
			SpotThresholdBTC: envFloat("BTC_SPOT_THRESHOLD", d.Bitcoin.SpotThresholdBTC),
		},

		Hyperliquid: HyperliquidConfig{
			Enabled:              envBoolDefault("HL_ENABLED", d.Hyperliquid.Enabled),
			WSURL:                envString("HL_WS_URL", d.Hyperliquid.WSURL),
			Coins:                envStringSliceDefault("HL_COINS", d.Hyperliquid.Coins),
			SpotThresholdUSD:     envFloat("HL_SPOT_THRESHOLD_USD", d.Hyperliquid.SpotThresholdUSD),
			ContractThresholdUSD: envFloat("HL_CONTRACT_THRESHOLD_USD", d.Hyperliquid.ContractThresholdUSD),
		},

		Reconnect: ReconnectConfig{
			BaseDelay:   envDuration("RECONNECT_BASE_DELAY", d.Reconnect.BaseDelay),
			MaxDelay:    envDuration("RECONNECT_MAX_DELAY", d.Reconnect.MaxDelay),
			MaxAttempts: envInt("RECONNECT_MAX_ATTEMPTS", d.Reconnect.MaxAttempts),
		},

		Dedup: DedupConfig{
			MaxSize: envInt("DEDUP_MAX_SIZE", d.Dedup.MaxSize),
		},

		ReferencePrices: ReferencePricesConfig{
			EthUSD: envFloat("REFERENCE_PRICE_ETH_USD", d.ReferencePrices.EthUSD),
			BtcUSD: envFloat("REFERENCE_PRICE_BTC_USD", d.ReferencePrices.BtcUSD),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", d.HealthServer.Enabled),
			Port:    envInt("HEALTH_SERVER_PORT", d.HealthServer.Port),
		},
	}
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSliceDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
