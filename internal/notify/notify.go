// Package notify reports reconciliations that found new lots.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"profitradar/internal/reconcile"
)

// maxListedLots caps how many lot keys one message spells out
const maxListedLots = 10

// LogNotifier writes one log line per reconciliation
type LogNotifier struct{}

func (LogNotifier) Reconciled(ctx context.Context, res *reconcile.Result) {
	switch {
	case res.Missing:
		log.Printf("[WARN] %s: auction no longer in its stored month, nothing attached", res.Link)
	case res.FellBack:
		log.Printf("[INFO] %s: no stored auction, sale list of %d attached as a full replace", res.Link, res.NumberOnSale)
	case res.Written:
		log.Printf("[INFO] %s: %d changes, %d new lots, %d entries stored", res.Link, res.Changes, res.Appended, res.MergedTotal)
	default:
		log.Printf("[INFO] %s: up to date, no write", res.Link)
	}
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a message to one chat when new lots show up
type TelegramNotifier struct {
	bot    sender
	chatID int64
}

// NewTelegramNotifier authorises the bot token against the Telegram API
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Printf("[INFO] Telegram notifications enabled as @%s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Reconciled(ctx context.Context, res *reconcile.Result) {
	if len(res.NewLots) == 0 {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatNewLots(res))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("[ERROR] failed to send telegram notification for %s: %v", res.Link, err)
	}
}

// FormatNewLots renders the HTML message body for a reconciliation with new lots
func FormatNewLots(res *reconcile.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 <b>%d new lots</b> on <a href=\"%s\">%s</a>\n",
		len(res.NewLots), html.EscapeString(res.Link), html.EscapeString(res.Link))

	for i, id := range res.NewLots {
		if i == maxListedLots {
			fmt.Fprintf(&b, "… and %d more\n", len(res.NewLots)-maxListedLots)
			break
		}
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(id.String()))
	}
	fmt.Fprintf(&b, "Sale list now holds %d entries.", res.MergedTotal)
	return b.String()
}
