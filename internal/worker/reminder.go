package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StartingNotifier is implemented by the reservation service.
type StartingNotifier interface {
	NotifyStartingToday(ctx context.Context) (int, error)
}

// ReminderWorker fires the "reservation starts today" notifications once a
// day at a configured local time.
type ReminderWorker struct {
	notifier StartingNotifier
	at       string // "HH:MM"
	logger   *zerolog.Logger
}

func NewReminderWorker(notifier StartingNotifier, at string, logger *zerolog.Logger) *ReminderWorker {
	if at == "" {
		at = "09:00"
	}
	return &ReminderWorker{notifier: notifier, at: at, logger: logger}
}

// Start blocks until the context is cancelled, running the reminder pass
// once per day.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info().Str("at", w.at).Msg("reminder worker started")
	defer w.logger.Info().Msg("reminder worker stopped")

	for {
		wait := w.untilNextRun(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		w.run(ctx)
	}
}

// Run executes a single reminder pass immediately.
func (w *ReminderWorker) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	count, err := w.notifier.NotifyStartingToday(runCtx)
	if err != nil {
		w.logger.Error().Err(err).Msg("reminder pass error")
		return
	}
	w.logger.Info().Int("reservations", count).Msg("reminder pass completed")
}

func (w *ReminderWorker) untilNextRun(now time.Time) time.Duration {
	at, err := time.Parse("15:04", w.at)
	if err != nil {
		w.logger.Warn().Str("at", w.at).Msg("invalid reminder time, using 09:00")
		at, _ = time.Parse("15:04", "09:00")
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
