package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/apexcrm/campaign-manager/internal/config"
	"github.com/apexcrm/campaign-manager/internal/db"
	"github.com/apexcrm/campaign-manager/internal/metrics"
	"github.com/apexcrm/campaign-manager/internal/queue"
	"github.com/apexcrm/campaign-manager/internal/repository"
	"github.com/apexcrm/campaign-manager/internal/service"
)

// The worker is the consuming half of the dispatch pipeline: it shares
// nothing with the API server but the broker and the database. Multiple
// instances fan out as competing consumers on the same durable queue.
func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on OS environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer conn.Close()

	q, err := queue.NewAMQPQueue(cfg.AMQPURL, cfg.QueueName, cfg.Prefetch, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to broker")
	}
	defer q.Close()

	m := metrics.New()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if err := http.ListenAndServe(cfg.WorkerListenAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	consumer := &service.Consumer{
		Queue:   q,
		Sender:  service.NewSender(cfg.SendSuccessRate, nil),
		LogRepo: &repository.LogRepository{DB: conn},
		Metrics: m,
		Log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.QueueName).Int("prefetch", cfg.Prefetch).Msg("worker consuming")
	if err := consumer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("worker drained, exiting")
}
