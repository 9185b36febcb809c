package notifier

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/domain"
	"deskhub/internal/events"
	"deskhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name string
	err  error

	mu    sync.Mutex
	sent  []string
	chats []int64
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Notify(_ context.Context, user *models.User, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	c.chats = append(c.chats, user.ChatID)
	return c.err
}

func newTestDispatcher(t *testing.T, channels ...domain.Notifier) (*database.DB, *events.EventBus) {
	return newTestDispatcherWithAdminChat(t, 0, channels...)
}

func newTestDispatcherWithAdminChat(t *testing.T, adminChatID int64, channels ...domain.Notifier) (*database.DB, *events.EventBus) {
	t.Helper()

	logger := zerolog.New(zerolog.NewConsoleWriter())
	db, err := database.NewDB(filepath.Join(t.TempDir(), "deskhub.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewEventBus()
	NewDispatcher(db, channels, adminChatID, &logger).Register(bus)
	return db, bus
}

func TestDispatcherReservationCreated(t *testing.T) {
	channel := &stubChannel{name: "stub"}
	db, bus := newTestDispatcher(t, channel)
	ctx := context.Background()

	guest := &models.User{Name: "Guest", Email: "guest@example.com"}
	require.NoError(t, db.CreateUser(ctx, guest))
	host := &models.User{Name: "Host", Email: "host@example.com"}
	require.NoError(t, db.CreateUser(ctx, host))

	require.NoError(t, bus.PublishJSON(events.EventReservationCreated, events.ReservationEventPayload{
		ReservationID: 1,
		UserID:        guest.ID,
		HostID:        host.ID,
		OfficeTitle:   "Loft on Main",
		StartDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	}))

	require.Len(t, channel.sent, 2)
	assert.Contains(t, channel.sent[0], "Your reservation at")
	assert.Contains(t, channel.sent[0], "2026-09-01 to 2026-09-10")
	assert.Contains(t, channel.sent[1], "was reserved")
}

func TestDispatcherPendingApprovalGoesToAdmins(t *testing.T) {
	channel := &stubChannel{name: "stub"}
	db, bus := newTestDispatcher(t, channel)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, &models.User{Name: "Host", Email: "host@example.com"}))
	admin := &models.User{Name: "Admin", Email: "admin@example.com", IsAdmin: true}
	require.NoError(t, db.CreateUser(ctx, admin))

	require.NoError(t, bus.PublishJSON(events.EventOfficePendingApproval, events.OfficeEventPayload{
		OfficeID: 7,
		HostID:   1,
		Title:    "Corner Studio",
	}))

	require.Len(t, channel.sent, 1)
	assert.Contains(t, channel.sent[0], "awaiting approval")
}

func TestDispatcherPendingApprovalPrefersAdminChat(t *testing.T) {
	channel := &stubChannel{name: "stub"}
	db, bus := newTestDispatcherWithAdminChat(t, 555, channel)
	ctx := context.Background()

	admin := &models.User{Name: "Admin", Email: "admin@example.com", IsAdmin: true, ChatID: 42}
	require.NoError(t, db.CreateUser(ctx, admin))

	require.NoError(t, bus.PublishJSON(events.EventOfficePendingApproval, events.OfficeEventPayload{
		OfficeID: 7,
		HostID:   1,
		Title:    "Corner Studio",
	}))

	// One delivery to the configured chat, none to the admin's own chat.
	require.Len(t, channel.sent, 1)
	assert.Contains(t, channel.sent[0], "awaiting approval")
	assert.Equal(t, []int64{555}, channel.chats)
}

func TestDispatcherChannelFailureDoesNotStopOthers(t *testing.T) {
	failing := &stubChannel{name: "failing", err: assert.AnError}
	working := &stubChannel{name: "working"}
	db, bus := newTestDispatcher(t, failing, working)
	ctx := context.Background()

	guest := &models.User{Name: "Guest", Email: "guest@example.com"}
	require.NoError(t, db.CreateUser(ctx, guest))

	require.NoError(t, bus.PublishJSON(events.EventReservationStarting, events.ReservationEventPayload{
		ReservationID: 1,
		UserID:        guest.ID,
		HostID:        9999, // missing host is logged and skipped
		OfficeTitle:   "Loft",
	}))

	assert.Len(t, failing.sent, 1)
	assert.Len(t, working.sent, 1)
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, b.err
}

func TestTelegramNotifier(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	bot := &fakeBot{}
	n := NewTelegramNotifier(bot, &logger)

	t.Run("sends to linked chat", func(t *testing.T) {
		user := &models.User{ID: 1, ChatID: 42}
		require.NoError(t, n.Notify(context.Background(), user, "hello"))
		require.Len(t, bot.sent, 1)
		assert.Equal(t, int64(42), bot.sent[0].ChatID)
		assert.Equal(t, "hello", bot.sent[0].Text)
	})

	t.Run("skips user without chat id", func(t *testing.T) {
		require.NoError(t, n.Notify(context.Background(), &models.User{ID: 2}, "hello"))
		assert.Len(t, bot.sent, 1)
	})

	t.Run("propagates send errors", func(t *testing.T) {
		bot.err = assert.AnError
		err := n.Notify(context.Background(), &models.User{ID: 3, ChatID: 43}, "hello")
		assert.Error(t, err)
	})
}
