package discord

import (
	"strings"
	"testing"
	"time"
	"whalewatch/clients/notifier"
	"whalewatch/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestNewDiscordClient_NoToken(t *testing.T) {
	cfg := &config.Config{
		IsProd: false,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(zap.NewNop(), cfg)

	if client.session != nil {
		t.Error("expected nil session when no token provided")
	}
	if client.channelID != "beta-channel" {
		t.Errorf("expected beta channel, got: %s", client.channelID)
	}
}

func TestNewDiscordClient_ProdChannel(t *testing.T) {
	cfg := &config.Config{
		IsProd: true,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(nil, cfg)

	if client.channelID != "prod-channel" {
		t.Errorf("expected prod channel, got: %s", client.channelID)
	}
}

func TestSendWhaleAlert_NoSession(t *testing.T) {
	client := &DiscordClient{
		logger:  zap.NewNop(),
		session: nil,
	}

	// Must not panic without a session.
	client.SendWhaleAlert(notifier.WhaleAlert{Source: "ethereum"})
}

func TestBuildWhaleEmbed_Spot(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	embed := client.buildWhaleEmbed(notifier.WhaleAlert{
		Source:      "bitcoin",
		EventID:     "txid",
		From:        "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		To:          "Unknown",
		Amount:      decimal.NewFromInt(42),
		Unit:        "BTC",
		Category:    notifier.CategorySpot,
		ExplorerURL: "https://mempool.space/tx/txid",
		Timestamp:   time.Unix(1700000000, 0),
	})

	if embed.Title != "Whale transfer on bitcoin" {
		t.Errorf("unexpected title: %s", embed.Title)
	}
	if embed.URL != "https://mempool.space/tx/txid" {
		t.Errorf("unexpected URL: %s", embed.URL)
	}
	if embed.Color != 0x3498DB {
		t.Errorf("expected spot color, got %#x", embed.Color)
	}

	var foundFrom bool
	for _, f := range embed.Fields {
		if f.Name == "From" && strings.Contains(f.Value, "…") {
			foundFrom = true
		}
	}
	if !foundFrom {
		t.Error("expected shortened From field")
	}
}

func TestBuildWhaleEmbed_Liquidation(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	embed := client.buildWhaleEmbed(notifier.WhaleAlert{
		Source:   "hyperliquid",
		Symbol:   "BTC",
		Side:     "long",
		Size:     decimal.NewFromInt(10),
		Price:    decimal.NewFromInt(6000),
		Amount:   decimal.NewFromInt(60000),
		Unit:     "USD",
		Category: notifier.CategoryLiquidation,
	})

	if embed.Color != 0xE74C3C {
		t.Errorf("expected liquidation color, got %#x", embed.Color)
	}
	if embed.Title != "Liquidation: BTC LONG" {
		t.Errorf("unexpected title: %s", embed.Title)
	}
}

func TestShortAddress(t *testing.T) {
	long := "0x1234567890abcdef1234567890abcdef12345678"
	short := shortAddress(long)
	if short == long {
		t.Error("expected long address to be shortened")
	}
	if shortAddress("Unknown") != "Unknown" {
		t.Error("expected short strings to pass through")
	}
}
