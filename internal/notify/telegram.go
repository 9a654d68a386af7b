// Package notify sends batch reports to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobcrawl-engine/internal/domain"
)

// Sender is the part of tgbotapi.BotAPI we use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot    Sender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NewTelegramWith uses an existing sender.
func NewTelegramWith(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// telegram rejects messages over 4096 characters
const maxMessage = 4000

func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// ReportBatch sends one summary message for a finished batch.
func (t *Telegram) ReportBatch(ctx context.Context, runs []domain.BatchRun) error {
	if len(runs) == 0 {
		return nil
	}
	return t.SendMessage(ctx, FormatReport(runs))
}

// FormatReport renders runs as an HTML message, one line per query.
func FormatReport(runs []domain.BatchRun) string {
	var total domain.Counters
	byStatus := map[domain.RunStatus]int{}
	for _, r := range runs {
		total.Add(r.Counters)
		byStatus[r.Status]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Crawl batch</b>: %d queries, %d new jobs saved\n", len(runs), total.Saved)
	fmt.Fprintf(&b, "scraped %d, stale %d, completed %d, stopped fresh %d, aborted %d\n\n",
		total.Scraped, total.Stale,
		byStatus[domain.RunCompleted], byStatus[domain.RunStoppedByFreshness], byStatus[domain.RunAbortedByFailure])

	for _, r := range runs {
		line := fmt.Sprintf("%s %s: +%d (%s",
			statusMark(r.Status), html.EscapeString(r.Query.Dimension.String()), r.Counters.Saved, r.Reason)
		if r.StaleRatio > 0 {
			line += fmt.Sprintf(", stale %.0f%%", r.StaleRatio*100)
		}
		line += ")\n"
		if b.Len()+len(line) > maxMessage {
			b.WriteString("…\n")
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusMark(s domain.RunStatus) string {
	switch s {
	case domain.RunCompleted:
		return "✅"
	case domain.RunStoppedByFreshness:
		return "⏹"
	case domain.RunAbortedByFailure:
		return "⚠️"
	default:
		return "•"
	}
}
