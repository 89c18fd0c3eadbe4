package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "["+cfg.ServiceName+"] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	catalogRepo := catalog.NewPostgresRepository(pool)
	userRepo := user.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool)

	// --- AMQP ---
	var publisher events.OrderEventPublisher = events.NopPublisher{}
	if cfg.EventsEnabled {
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{Producer: cfg.ServiceName})
		if err != nil {
			logger.Fatalf("create publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	} else {
		logger.Printf("event publishing disabled")
	}

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Logger:         logger,
		ServiceName:    cfg.ServiceName,
		RequestTimeout: cfg.RequestTimeout,
		JWTSecret:      cfg.JWTSecret,
		AllowOrigins:   cfg.AllowOrigins,
		Catalog:        catalog.NewCachedRepository(catalogRepo, 0),
		Users:          userRepo,
		Cart:           cart.NewService(cartRepo, catalogRepo),
		Checkout:       checkout.NewEngine(checkout.NewPostgresUnitOfWork(pool)),
		Orders:         orderRepo,
		Events:         publisher,
	})
	if cfg.JWTSecret == "" {
		logger.Printf("identity from %s header", httpapi.HeaderUserID)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	cancel()

	logger.Printf("shutdown complete")
}
