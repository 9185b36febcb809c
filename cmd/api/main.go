package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskhub/internal/api"
	"deskhub/internal/config"
	"deskhub/internal/database"
	"deskhub/internal/domain"
	"deskhub/internal/events"
	"deskhub/internal/export"
	"deskhub/internal/google"
	"deskhub/internal/logging"
	"deskhub/internal/metrics"
	"deskhub/internal/models"
	"deskhub/internal/notifier"
	"deskhub/internal/repository"
	"deskhub/internal/service"
	"deskhub/internal/storage"
	"deskhub/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := applySeeds(db, logger); err != nil {
		return err
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)

	bus := events.NewEventBus()
	registerNotifiers(cfg, db, bus, logger)

	var ledger domain.LedgerWorker
	if w := initLedgerWorker(ctx, cfg, db, redisClient, logger); w != nil {
		ledger = w
	}

	files, err := storage.NewFileStore(cfg.Storage.ImagesPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Storage.ImagesPath).Msg("init image storage")
		return err
	}

	reservations := service.NewReservationService(db, initLocker(cfg, redisClient), bus, ledger, cfg.Lock.Hold(), logger)
	offices := service.NewOfficeService(db, files, bus, logger)
	images := service.NewImageService(db, files, logger)
	exporter := export.NewExporter(cfg.Exports.Path, logger)

	reminder := worker.NewReminderWorker(reservations, cfg.Reminder.Time, logger)
	go reminder.Start(ctx)

	server := api.NewServer(cfg, offices, reservations, images, exporter, logger)
	return serve(ctx, server, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

// applySeeds upserts the users and tags listed in the seeds file. Without
// at least one seeded user no API key can authenticate, so a missing file
// is only skipped silently when none is configured.
func applySeeds(db *database.DB, logger *zerolog.Logger) error {
	seedsPath := os.Getenv("SEEDS_PATH")
	if seedsPath == "" {
		seedsPath = "configs/seeds.yaml"
		if _, err := os.Stat(seedsPath); os.IsNotExist(err) {
			logger.Warn().Msg("no seeds file found, skipping seeding")
			return nil
		}
	}

	data, err := os.ReadFile(seedsPath)
	if err != nil {
		logger.Error().Err(err).Str("seeds_path", seedsPath).Msg("read seeds")
		return err
	}

	var seeds struct {
		Users []models.User `yaml:"users"`
		Tags  []models.Tag  `yaml:"tags"`
	}
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		logger.Error().Err(err).Str("seeds_path", seedsPath).Msg("parse seeds")
		return err
	}

	ctx := context.Background()
	for i := range seeds.Users {
		if err := db.CreateOrUpdateUser(ctx, &seeds.Users[i]); err != nil {
			return fmt.Errorf("seed user %q: %w", seeds.Users[i].Email, err)
		}
	}
	for i := range seeds.Tags {
		if err := db.UpsertTag(ctx, &seeds.Tags[i]); err != nil {
			return fmt.Errorf("seed tag %q: %w", seeds.Tags[i].Name, err)
		}
	}

	logger.Info().Int("users", len(seeds.Users)).Int("tags", len(seeds.Tags)).Msg("seeds applied")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initLocker(cfg *config.Config, redisClient *redis.Client) repository.Locker {
	if redisClient != nil {
		return repository.NewRedisLocker(redisClient, cfg.Lock.Wait())
	}
	return repository.NewMemoryLocker(cfg.Lock.Wait())
}

func registerNotifiers(cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	channels := []domain.Notifier{notifier.NewLogNotifier(logger)}

	if cfg.Telegram.Enabled {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without telegram notifications")
		} else {
			logger.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
			channels = append(channels, notifier.NewTelegramNotifier(bot, logger))
		}
	}

	notifier.NewDispatcher(db, channels, cfg.Telegram.AdminChatID, logger).Register(bus)
}

// initLedgerWorker starts the sheets ledger pipeline. When the Google
// ledger is disabled the worker is omitted entirely and reservations are
// simply not mirrored.
func initLedgerWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.LedgerWorker {
	if !cfg.Google.Enabled {
		return nil
	}

	ledger, err := google.NewSheetsLedger(ctx, cfg.Google.CredentialsFile, cfg.Google.LedgerSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without ledger")
		return nil
	}
	if err := ledger.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without ledger")
		return nil
	}
	logger.Info().Msg("google sheets ledger connected")

	w := worker.NewLedgerWorker(db, ledger, redisClient, worker.RetryPolicy{}, logger)
	go w.Start(ctx)
	return w
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, server *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Msg("API server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
