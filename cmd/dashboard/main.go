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

	"labdesk/internal/api"
	"labdesk/internal/config"
	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/logging"
	"labdesk/internal/metrics"
	"labdesk/internal/notify"
	"labdesk/internal/remote"
	"labdesk/internal/repository"
	"labdesk/internal/service"
	"labdesk/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting dashboard application. Check your config.")
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return fmt.Errorf("dashboard timezone: %w", err)
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout, logging.Component(&logger, "remote"))
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.Remote.LabsCacheTTL)
	}

	bus := events.NewEventBus().WithLogger(logging.Component(&logger, "events"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initTelegram(ctx, cfg, bus, &logger)

	sessions := service.NewSessionManager(client, initStateRepository(cfg, redisClient, &logger), bus, service.ManagerConfig{
		Session: service.SessionOptions{
			PendingLimit:        cfg.Dashboard.PendingLimit,
			ActivityLimit:       cfg.Dashboard.ActivityLimit,
			DefaultRejectReason: cfg.Dashboard.DefaultRejectReason,
			UtilizationLabID:    cfg.Dashboard.UtilizationLabID,
			Location:            loc,
		},
		MutationLimit:  cfg.Dashboard.MutationRateLimit,
		MutationWindow: cfg.Dashboard.MutationRateWindow,
	}, logging.Component(&logger, "sessions"))

	go sessions.RunSweeper(ctx, cfg.Dashboard.SweepInterval)

	httpServer := api.NewHTTPServer(cfg.API, sessions, logging.Component(&logger, "http"))

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "dashboard-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initStateRepository keeps sessions in redis when it is reachable, with
// process memory as the fallback.
func initStateRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	memory := repository.NewMemoryStateRepository(cfg.Dashboard.SessionTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, cfg.Dashboard.SessionTTL)
	return repository.NewFailoverStateRepository(primary, memory, logging.Component(logger, "state"))
}

// initTelegram subscribes a notifier whose messages go through a
// background delivery worker bound to ctx.
func initTelegram(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled {
		return
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	botAPI.Debug = cfg.Telegram.Debug

	deliveries := worker.NewDeliveryWorker(botAPI, worker.RetryPolicy{
		MaxRetries:   cfg.Telegram.MaxRetries,
		InitialDelay: 2 * time.Second,
		MaxDelay:     time.Minute,
	}, cfg.Telegram.QueueSize, logging.Component(logger, "telegram-worker"))
	go deliveries.Start(ctx)

	notifier := notify.NewTelegramNotifier(botAPI, cfg.Telegram.ChatIDs, logging.Component(logger, "telegram"))
	notifier.WithQueue(deliveries).Subscribe(bus)
	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("remote", cfg.Remote.BaseURL).Msg("dashboard started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server stopped")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("dashboard stopped")
	return nil
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
