package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/config"
	"github.com/petalcrumb/pos-engine/internal/obs"
	"github.com/petalcrumb/pos-engine/internal/printer"
	"github.com/petalcrumb/pos-engine/internal/queue"
)

// The worker drains the printing queue so a slow or jammed printer never
// blocks the register. It shares the engine's Redis with the API process.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "pos"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	var printClient printer.Client
	if cfg.PrinterURL != "" {
		printClient = &printer.HTTPClient{
			BaseURL: cfg.PrinterURL,
			Client:  common.HTTPClient(cfg.CollaboratorTimeout),
		}
	} else {
		logger.Warn().Msg("no printer sidecar configured, receipts go to the log only")
		printClient = &printer.MockClient{}
	}

	asynqOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for asynq")
	}
	srv := asynq.NewServer(asynqOpts, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			queue.QueuePrinting: 1,
		},
		Logger: asynqZerolog{logger: logger},
	})

	mux := queue.NewMux(&queue.ReceiptHandler{Printer: printClient})

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

// asynqZerolog adapts the shared zerolog logger to asynq's logging interface.
type asynqZerolog struct {
	logger zerolog.Logger
}

func (l asynqZerolog) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqZerolog) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqZerolog) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqZerolog) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqZerolog) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
