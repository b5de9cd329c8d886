package clients

import (
	"whalewatch/clients/bitcoinapi"
	"whalewatch/clients/discord"
	"whalewatch/clients/ethereumws"
	"whalewatch/clients/hyperliquidws"
	"whalewatch/clients/notifier"
	"whalewatch/clients/telegram"
	"whalewatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Discord  *discord.DiscordClient
	Telegram *telegram.TelegramClient
	Notifier notifier.Notifier // Combined notifier for all channels

	Ethereum    *ethereumws.EthereumWSClient
	Hyperliquid *hyperliquidws.HyperliquidWSClient
	Bitcoin     *bitcoinapi.BitcoinApiClient
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	// Create combined notifier for all channels
	multiNotifier := notifier.NewMultiNotifier(discordClient, telegramClient)

	c := &Clients{
		Logger:   logger,
		Discord:  discordClient,
		Telegram: telegramClient,
		Notifier: multiNotifier,
	}

	// Only create source clients for enabled sources
	if cfg.Ethereum.Enabled {
		c.Ethereum = ethereumws.NewEthereumWSClient(logger, cfg.Ethereum.WSURL)
	}
	if cfg.Hyperliquid.Enabled {
		c.Hyperliquid = hyperliquidws.NewHyperliquidWSClient(logger, cfg.Hyperliquid.WSURL, cfg.Hyperliquid.Coins)
	}
	if cfg.Bitcoin.Enabled {
		c.Bitcoin = bitcoinapi.NewBitcoinApiClient(logger, cfg)
	}

	return c
}
