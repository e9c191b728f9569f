package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theater-seat-reservation/internal/config"
	"github.com/iliyamo/theater-seat-reservation/internal/coordinator"
	"github.com/iliyamo/theater-seat-reservation/internal/database"
	"github.com/iliyamo/theater-seat-reservation/internal/handler"
	"github.com/iliyamo/theater-seat-reservation/internal/ledger"
	appmw "github.com/iliyamo/theater-seat-reservation/internal/middleware"
	"github.com/iliyamo/theater-seat-reservation/internal/notify"
	"github.com/iliyamo/theater-seat-reservation/internal/router"
	"github.com/iliyamo/theater-seat-reservation/internal/store"
	"github.com/iliyamo/theater-seat-reservation/internal/view"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The materialized seat view consumes all play streams until shutdown.
	seatView := view.New(cfg.KafkaBrokers,
		view.WithDiscoverInterval(cfg.ViewDiscoverInterval),
		view.WithReadBackoff(cfg.ViewReadBackoff),
	)
	viewDone := make(chan struct{})
	go func() {
		defer close(viewDone)
		seatView.Run(ctx)
	}()

	coord := coordinator.New(
		ledger.NewWriter(cfg.KafkaBrokers),
		ledger.NewScanner(cfg.KafkaBrokers),
		store.New(db),
		coordinator.WithVerifyTimeout(cfg.VerifyTimeout),
		coordinator.WithNotifier(notify.NewPublisher(cfg.AMQPURL)),
	)

	e := echo.New()
	e.HideBanner = true

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unreachable, rate limiting disabled")
	}
	ratelimit := appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.Register(e,
		handler.NewReservationHandler(coord),
		handler.NewAvailabilityHandler(seatView),
		ratelimit,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, brokers=%v)", addr, cfg.Env, cfg.KafkaBrokers)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	// Wait for the view to release its consumers before exiting.
	<-viewDone
}
