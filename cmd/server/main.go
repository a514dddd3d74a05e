package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/apexcrm/campaign-manager/internal/config"
	"github.com/apexcrm/campaign-manager/internal/db"
	"github.com/apexcrm/campaign-manager/internal/handler"
	"github.com/apexcrm/campaign-manager/internal/metrics"
	"github.com/apexcrm/campaign-manager/internal/queue"
	"github.com/apexcrm/campaign-manager/internal/repository"
	"github.com/apexcrm/campaign-manager/internal/service"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on OS environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer conn.Close()

	customerRepo := &repository.CustomerRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	orderRepo := &repository.OrderRepository{DB: conn}
	logRepo := &repository.LogRepository{DB: conn}
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// With a broker configured the consumer runs in cmd/worker; without one
	// the in-memory queue carries tasks to an in-process consumer.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, cfg.QueueName, cfg.Prefetch, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to broker")
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		log.Warn().Msg("AMQP_URL not set, using in-memory queue with in-process consumer")
		memQueue := queue.NewInMemoryQueue(0)
		defer memQueue.Close()
		q = memQueue

		consumer := &service.Consumer{
			Queue:   memQueue,
			Sender:  service.NewSender(cfg.SendSuccessRate, nil),
			LogRepo: logRepo,
			Metrics: m,
			Log:     log,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("in-process consumer stopped")
			}
		}()
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		CustomerRepo: customerRepo,
		LogRepo:      logRepo,
		Queue:        q,
		Metrics:      m,
		Log:          log,
	}

	campaignHandler := &handler.CampaignHandler{Service: campaignService, Log: log}
	customerHandler := &handler.CustomerHandler{Customers: customerRepo, Orders: orderRepo, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/customers", customerHandler.CreateCustomer)
		r.Get("/customers", customerHandler.ListCustomers)
		r.Delete("/customers/{id}", customerHandler.DeleteCustomer)
		r.Get("/customers/{id}/orders", customerHandler.ListCustomerOrders)
		r.Post("/orders", customerHandler.CreateOrder)

		r.Get("/campaigns", campaignHandler.ListCampaigns)
		r.Post("/campaigns", campaignHandler.CreateCampaign)
		r.Get("/campaigns/{id}", campaignHandler.GetCampaign)
		r.Post("/campaigns/{id}/audience", campaignHandler.AppendAudience)
		r.Post("/campaigns/{id}/send", campaignHandler.Dispatch)
		r.Get("/campaigns/{id}/logs", campaignHandler.ListLogs)
		r.Patch("/campaigns/{campaignID}/logs/{logID}", campaignHandler.UpdateDeliveryStatus)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
