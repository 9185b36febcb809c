package notifier

import (
	"context"

	"deskhub/internal/models"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the application log. It stands in
// for real channels in development and keeps the dispatcher exercised
// when no external channel is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(_ context.Context, user *models.User, text string) error {
	n.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Str("text", text).
		Msg("notification")
	return nil
}
