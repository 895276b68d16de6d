package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/otakuogeek/clinic-callcenter/internal/api/router"
	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	appconfig "github.com/otakuogeek/clinic-callcenter/internal/config"
	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/http/handlers"
	"github.com/otakuogeek/clinic-callcenter/internal/observability/metrics"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/convai"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/relay"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/tts"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

func main() {
	// Load .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-callcenter API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	callMetrics := metrics.NewCallMetrics(registry)

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

	// The relay provider is optional; without it conversational calls still
	// work but the fallback and physical strategies are disabled.
	var relayClient *relay.Client
	if cfg.RelayAPIKey != "" && cfg.RelaySecretKey != "" {
		relayClient, err = relay.New(relay.Config{
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
	} else {
		logger.Warn("relay provider not configured; fallback and physical calls disabled")
	}

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
	if relayClient != nil {
		dialerCfg.Relay = relayClient
	} else {
		// Without relay credentials the extension is unusable.
		dialerCfg.RelaySIPExtension = ""
	}
	dialerService := dialer.New(dialerCfg)

	callHandler := handlers.NewCallHandler(dialerService, store, logger)
	var relayHandler *handlers.RelayHandler
	if relayClient != nil {
		relayHandler = handlers.NewRelayHandler(relayClient, logger)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, `{"status":"degraded","database":"unreachable"}`, http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, `{"status":"degraded","redis":"unreachable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}

	r := router.New(&router.Config{
		Logger:             logger,
		CallHandler:        callHandler,
		RelayHandler:       relayHandler,
		AdminJWTSecret:     cfg.AdminJWTSecret,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		HealthCheck:        health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
