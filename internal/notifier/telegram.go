package notifier

import (
	"context"
	"fmt"

	"deskhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the slice of the bot API the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers notifications as Telegram messages to users
// who linked a chat id.
type TelegramNotifier struct {
	bot    TelegramSender
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot TelegramSender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, logger: logger}
}

func (n *TelegramNotifier) Name() string {
	return "telegram"
}

func (n *TelegramNotifier) Notify(_ context.Context, user *models.User, text string) error {
	if user.ChatID == 0 {
		// Not an error, the user simply has no linked chat.
		n.logger.Debug().Int64("user_id", user.ID).Msg("skip telegram notification, no chat id")
		return nil
	}

	msg := tgbotapi.NewMessage(user.ChatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
