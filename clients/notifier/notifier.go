package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category indicates what kind of on-chain activity an alert describes.
type Category string

const (
	CategorySpot        Category = "spot"
	CategoryContract    Category = "contract"
	CategoryLiquidation Category = "liquidation"
)

// WhaleAlert contains all the data needed for a whale transaction notification.
type WhaleAlert struct {
	// Source identity
	Source  string // "ethereum", "bitcoin", "hyperliquid"
	EventID string

	// Counterparties
	From string
	To   string

	// Value
	Amount decimal.Decimal
	Unit   string // "ETH", "BTC" or "USD"

	// Venue metadata, populated for contract/liquidation alerts only
	Symbol    string
	Side      string // "long" or "short"
	Size      decimal.Decimal
	Price     decimal.Decimal
	Direction string // "open" or "close"

	// Link to a block explorer for the underlying event, when one exists
	ExplorerURL string

	// Alert metadata
	Category  Category
	Timestamp time.Time
}

// Title returns a short human-readable headline for the alert.
func (a WhaleAlert) Title() string {
	switch a.Category {
	case CategoryLiquidation:
		return fmt.Sprintf("Liquidation: %s %s", a.Symbol, strings.ToUpper(a.Side))
	case CategoryContract:
		verb := "Position opened"
		if a.Direction == "close" {
			verb = "Position closed"
		}
		if a.Symbol != "" {
			return fmt.Sprintf("%s: %s", verb, a.Symbol)
		}
		return verb
	default:
		return fmt.Sprintf("Whale transfer on %s", a.Source)
	}
}

// FormatAmount renders the notional with its unit, e.g. "1,234.50 ETH".
func (a WhaleAlert) FormatAmount() string {
	return fmt.Sprintf("%s %s", groupThousands(a.Amount.StringFixed(2)), a.Unit)
}

// groupThousands inserts comma separators into the integer part of a
// fixed-point decimal string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Notifier is the interface for sending whale alerts to various channels.
type Notifier interface {
	// SendWhaleAlert sends a whale alert notification.
	SendWhaleAlert(alert WhaleAlert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendWhaleAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendWhaleAlert(alert WhaleAlert) {
	for _, n := range m.notifiers {
		n.SendWhaleAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
