package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	appconfig "github.com/otakuogeek/clinic-callcenter/internal/config"
	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/observability/metrics"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/convai"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/relay"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/tts"
	"github.com/otakuogeek/clinic-callcenter/internal/reminder"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// One-shot batch: place a reminder call for every appointment scheduled
// tomorrow, then exit. Intended to run from cron or a scheduled task.
func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder batch", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := calls.NewStore(pool)
	source := reminder.NewPostgresSource(pool)

	convaiClient, err := convai.New(convai.Config{
		BaseURL: cfg.ConvAIBaseURL,
		APIKey:  cfg.ConvAIAPIKey,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger.Component("convai").Logger,
	})
	if err != nil {
		logger.Error("failed to create conversational client", "error", err)
		os.Exit(1)
	}
	ttsClient, err := tts.New(tts.Config{
		BaseURL: cfg.TTSBaseURL,
		APIKey:  cfg.TTSAPIKey,
		ModelID: cfg.TTSModelID,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger.Component("tts").Logger,
	})
	if err != nil {
		logger.Error("failed to create synthesis client", "error", err)
		os.Exit(1)
	}

	callMetrics := metrics.NewCallMetrics(nil)

	dialerCfg := dialer.Config{
		ConvAI:             convaiClient,
		TTS:                ttsClient,
		Store:              store,
		Metrics:            callMetrics,
		Logger:             logger,
		DefaultAgentID:     cfg.ConvAIAgentID,
		DefaultVoiceID:     cfg.TTSVoiceID,
		DefaultCountryCode: cfg.DefaultCountryCode,
		RelaySIPExtension:  cfg.RelaySIPExtension,
	}
	if cfg.RelayAPIKey != "" && cfg.RelaySecretKey != "" {
		relayClient, err := relay.New(relay.Config{
			BaseURL:   cfg.RelayBaseURL,
			APIKey:    cfg.RelayAPIKey,
			SecretKey: cfg.RelaySecretKey,
			Timeout:   cfg.ProviderTimeout,
			Logger:    logger.Component("relay").Logger,
		})
		if err != nil {
			logger.Error("failed to create relay client", "error", err)
			os.Exit(1)
		}
		dialerCfg.Relay = relayClient
	} else {
		dialerCfg.RelaySIPExtension = ""
	}
	dialerService := dialer.New(dialerCfg)

	var dedupe reminder.Dedupe
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
		dedupe = reminder.NewRedisDedupe(redisClient, cfg.ReminderDedupeTTL)
	} else {
		logger.Warn("redis not configured; reminder runs will not deduplicate")
	}

	runner := reminder.NewRunner(reminder.Config{
		Source:   source,
		Dialer:   dialerService,
		Dedupe:   dedupe,
		Pause:    cfg.ReminderPause,
		Campaign: cfg.ReminderCampaign,
		Metrics:  callMetrics,
		Logger:   logger,
	})

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Error("reminder batch aborted", "error", err)
		os.Exit(1)
	}
	logger.Info("reminder batch finished",
		"total", summary.Total,
		"placed", summary.Placed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"avg_placement_ms", summary.AvgPlacement.Milliseconds(),
	)
}
