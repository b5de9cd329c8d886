package config

import (
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateEthereum(&c.Ethereum)...)
	errors = append(errors, validateBitcoin(&c.Bitcoin)...)
	errors = append(errors, validateHyperliquid(&c.Hyperliquid)...)
	errors = append(errors, validateReconnect(&c.Reconnect)...)
	errors = append(errors, validateDedup(&c.Dedup)...)
	errors = append(errors, validateReferencePrices(&c.ReferencePrices)...)
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateEthereum(e *EthereumConfig) []ValidationError {
	var errors []ValidationError

	if e.Enabled && e.WSURL == "" {
		errors = append(errors, ValidationError{
			Field:   "ethereum.ws_url",
			Message: "must be set when ethereum monitoring is enabled",
		})
	}
	if e.SpotThresholdETH < 0 {
		errors = append(errors, ValidationError{
			Field:   "ethereum.spot_threshold_eth",
			Message: "must not be negative",
		})
	}
	if e.ContractThresholdUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   "ethereum.contract_threshold_usd",
			Message: "must not be negative",
		})
	}
	if e.LookupTimeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "ethereum.lookup_timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateBitcoin(b *BitcoinConfig) []ValidationError {
	var errors []ValidationError

	if b.Enabled && b.APIURL == "" {
		errors = append(errors, ValidationError{
			Field:   "bitcoin.api_url",
			Message: "must be set when bitcoin monitoring is enabled",
		})
	}
	if b.PollInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "bitcoin.poll_interval",
			Message: "must be at least 1 second",
		})
	}
	if b.BlockDepth < 1 {
		errors = append(errors, ValidationError{
			Field:   "bitcoin.block_depth",
			Message: "must be at least 1",
		})
	}
	if b.SpotThresholdBTC < 0 {
		errors = append(errors, ValidationError{
			Field:   "bitcoin.spot_threshold_btc",
			Message: "must not be negative",
		})
	}

	return errors
}

func validateHyperliquid(h *HyperliquidConfig) []ValidationError {
	var errors []ValidationError

	if h.Enabled && h.WSURL == "" {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.ws_url",
			Message: "must be set when hyperliquid monitoring is enabled",
		})
	}
	if h.Enabled && len(h.Coins) == 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.coins",
			Message: "must list at least one coin when enabled",
		})
	}
	if h.SpotThresholdUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.spot_threshold_usd",
			Message: "must not be negative",
		})
	}
	if h.ContractThresholdUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.contract_threshold_usd",
			Message: "must not be negative",
		})
	}

	return errors
}

func validateReconnect(r *ReconnectConfig) []ValidationError {
	var errors []ValidationError

	if r.BaseDelay < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "reconnect.base_delay",
			Message: "must be at least 1 second",
		})
	}
	if r.MaxDelay < r.BaseDelay {
		errors = append(errors, ValidationError{
			Field:   "reconnect.max_delay",
			Message: "must be at least base_delay",
		})
	}
	if r.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "reconnect.max_attempts",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateDedup(d *DedupConfig) []ValidationError {
	var errors []ValidationError

	if d.MaxSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "dedup.max_size",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateReferencePrices(p *ReferencePricesConfig) []ValidationError {
	var errors []ValidationError

	if p.EthUSD <= 0 {
		errors = append(errors, ValidationError{
			Field:   "reference_prices.eth_usd",
			Message: "must be positive",
		})
	}
	if p.BtcUSD <= 0 {
		errors = append(errors, ValidationError{
			Field:   "reference_prices.btc_usd",
			Message: "must be positive",
		})
	}

	return errors
}

func validateHealthServer(h *HealthServerConfig) []ValidationError {
	var errors []ValidationError

	if h.Enabled && (h.Port < 1 || h.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "health_server.port",
			Message: "must be a valid port number",
		})
	}

	return errors
}
