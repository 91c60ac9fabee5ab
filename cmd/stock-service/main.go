package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/events"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/handler"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/repository"
	"github.com/pawsuite/pawsuite-backend/internal/inventory/service"
	"github.com/pawsuite/pawsuite-backend/pkg/config"
	"github.com/pawsuite/pawsuite-backend/pkg/database"
	"github.com/pawsuite/pawsuite-backend/pkg/httputil"
	"github.com/pawsuite/pawsuite-backend/pkg/logger"
	"github.com/pawsuite/pawsuite-backend/pkg/messaging"
)

const serviceName = "stock-service"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Str("environment", cfg.Server.Environment).Msg("starting stock service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// The broker is optional in development: without it the service runs
	// with event publication disabled.
	var rmq *messaging.RabbitMQ
	var sink events.Sink

	rmq, err = messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		if config.IsProductionLike() {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
	} else {
		defer rmq.Close()

		publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		sink = publisher
	}

	itemRepo := repository.NewItemRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	movementRepo := repository.NewMovementRepository(db)

	stockEvents := events.NewPublisher(sink, log.WithComponent("events"))
	svc := service.New(itemRepo, batchRepo, movementRepo, stockEvents, cfg.Stock, log.WithComponent("service"))

	itemHandler := handler.NewItemHandler(svc, log)
	batchHandler := handler.NewBatchHandler(svc, log)
	stockHandler := handler.NewStockHandler(svc, log)
	reportHandler := handler.NewReportHandler(svc, log)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Org-ID", "X-User-ID", "X-User-Name", "X-User-Email"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.OrgMiddleware)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		health := map[string]interface{}{
			"service":  serviceName,
			"database": db.Health(req.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		} else {
			health["rabbitmq"] = map[string]string{"status": "disabled"}
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		itemHandler.RegisterRoutes(r)
		batchHandler.RegisterRoutes(r)
		stockHandler.RegisterRoutes(r)
		reportHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("stock service stopped")
}
