// Package notify sends trade and settlement notifications via the Telegram
// Bot API. Without a token the notifier runs disabled and every send is a
// no-op, so callers never branch on configuration.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Notifier sends MarkdownV2 messages to a single chat.
type Notifier struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// New creates a notifier. An empty token returns a disabled notifier and no
// error.
func New(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Notifier, error) {
	if botToken == "" {
		return &Notifier{}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Notifier{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n.bot != nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (n *Notifier) sendMarkdownV2(text string) error {
	if n.bot == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		if _, err := n.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(n.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", n.maxRetries, lastErr)
}

// SendTrade announces a placed paper trade.
func (n *Notifier) SendTrade(matchLabel, outcome string, stake, price, fair, edge decimal.Decimal) error {
	text := fmt.Sprintf("🟢 *Trade placed*\n%s\nBacking *%s*: \\$%s @ %s\nFair %s, edge %s",
		escapeMarkdownV2(matchLabel),
		escapeMarkdownV2(outcome),
		escapeMarkdownV2(stake.StringFixed(2)),
		escapeMarkdownV2(price.StringFixed(3)),
		escapeMarkdownV2(fair.StringFixed(3)),
		escapeMarkdownV2(edge.StringFixed(3)),
	)
	return n.sendMarkdownV2(text)
}

// SendSettlement announces a resolved position.
func (n *Notifier) SendSettlement(matchLabel, outcome string, won bool, pnl decimal.Decimal) error {
	emoji, verdict := "✅", "won"
	if !won {
		emoji, verdict = "❌", "lost"
	}
	text := fmt.Sprintf("%s *Position %s*\n%s\n*%s*: P\\&L \\$%s",
		emoji, verdict,
		escapeMarkdownV2(matchLabel),
		escapeMarkdownV2(outcome),
		escapeMarkdownV2(pnl.StringFixed(2)),
	)
	return n.sendMarkdownV2(text)
}

// SendStrongEdge announces a newly strong mispricing that may not have been
// tradeable (for example when policy blocked the order). Call on transitions
// into the strong band, not on every snapshot.
func (n *Notifier) SendStrongEdge(matchLabel, outcome string, fair, price, edge decimal.Decimal) error {
	text := fmt.Sprintf("🔥 *Strong edge*\n%s\n*%s* fair %s vs market %s \\(edge %s\\)",
		escapeMarkdownV2(matchLabel),
		escapeMarkdownV2(outcome),
		escapeMarkdownV2(fair.StringFixed(3)),
		escapeMarkdownV2(price.StringFixed(3)),
		escapeMarkdownV2(edge.StringFixed(3)),
	)
	return n.sendMarkdownV2(text)
}

// SendMatchStart announces a newly tracked match.
func (n *Notifier) SendMatchStart(matchLabel string, bestOf int) error {
	text := fmt.Sprintf("🎮 *Tracking match*\n%s \\(Bo%d\\)",
		escapeMarkdownV2(matchLabel), bestOf)
	return n.sendMarkdownV2(text)
}

// SendError announces a pipeline error. Call only on the first occurrence of
// a consecutive error sequence.
func (n *Notifier) SendError(pipelineErr error) error {
	text := fmt.Sprintf("⚠️ *Pipeline error*\n`%s`", escapeMarkdownV2(pipelineErr.Error()))
	return n.sendMarkdownV2(text)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
