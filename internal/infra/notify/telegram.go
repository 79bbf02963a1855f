package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tagpay/internal/config"
	"tagpay/internal/domain/ports/adapter"
)

// messageSender is the slice of *tgbotapi.BotAPI used here.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier alerts operators in the configured admin chats.
type TelegramNotifier struct {
	bot     messageSender
	chatIDs []int64
}

var _ adapter.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.AdminChatIDs) == 0 {
		return nil, errors.New("telegram admin_chat_ids is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newTelegramNotifier(bot, cfg.AdminChatIDs), nil
}

func newTelegramNotifier(bot messageSender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) NotifyActivation(ctx context.Context, n adapter.ActivationNotice) error {
	text := formatOperatorAlert(n)
	var errs []error
	for _, id := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func formatOperatorAlert(n adapter.ActivationNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tag %s activated\n", n.Token)
	fmt.Fprintf(&b, "Buyer: %s <%s>\n", n.UserName, n.UserEmail)
	fmt.Fprintf(&b, "Provider: %s\n", n.Provider)
	fmt.Fprintf(&b, "Target: %s\n", n.TargetURL)
	fmt.Fprintf(&b, "At: %s", n.ActivatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
