package discord

import (
	"fmt"
	"strings"
	"time"
	"whalewatch/clients/notifier"
	"whalewatch/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// SendWhaleAlert sends a rich embedded whale alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendWhaleAlert(alert notifier.WhaleAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildWhaleEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord whale alert",
		zap.String("source", alert.Source),
		zap.String("eventID", alert.EventID),
	)
}

func (dc *DiscordClient) buildWhaleEmbed(alert notifier.WhaleAlert) *discordgo.MessageEmbed {
	color := 0x3498DB // Blue for spot transfers
	switch alert.Category {
	case notifier.CategoryContract:
		color = 0x2ECC71 // Green for positions
		if alert.Direction == "close" {
			color = 0xF39C12 // Orange for closes
		}
	case notifier.CategoryLiquidation:
		color = 0xE74C3C // Red for liquidations
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Amount",
			Value:  alert.FormatAmount(),
			Inline: true,
		},
		{
			Name:   "Source",
			Value:  alert.Source,
			Inline: true,
		},
	}

	switch alert.Category {
	case notifier.CategoryContract, notifier.CategoryLiquidation:
		if alert.Symbol != "" {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Market",
				Value:  alert.Symbol,
				Inline: true,
			})
		}
		if alert.Side != "" {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Side",
				Value:  strings.ToUpper(alert.Side),
				Inline: true,
			})
		}
		if !alert.Price.IsZero() {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Size @ Price",
				Value:  fmt.Sprintf("%s @ $%s", alert.Size.String(), alert.Price.String()),
				Inline: true,
			})
		}
	default:
		fields = append(fields,
			&discordgo.MessageEmbedField{
				Name:   "From",
				Value:  shortAddress(alert.From),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name:   "To",
				Value:  shortAddress(alert.To),
				Inline: true,
			},
		)
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:  alert.Title(),
		URL:    alert.ExplorerURL, // Makes title clickable
		Color:  color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("whalewatch * %s", ts.UTC().Format("1/2/2006, 3:04:05PM (MST)")),
		},
		Timestamp: ts.Format(time.RFC3339),
	}

	return embed
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (dc *DiscordClient) Close() error {
	if dc.session == nil {
		return nil
	}
	return dc.session.Close()
}
