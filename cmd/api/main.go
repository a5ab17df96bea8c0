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

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/api"
	"github.com/punchamoorthee/qrpay/internal/config"
	"github.com/punchamoorthee/qrpay/internal/logger"
	"github.com/punchamoorthee/qrpay/internal/qr"
	"github.com/punchamoorthee/qrpay/internal/service"
	"github.com/punchamoorthee/qrpay/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl := logger.Must(cfg.Env)
	defer zl.Sync()

	journal := openJournal(cfg, zl)
	defer journal.Close()

	// Initialize Layers
	engine := qr.NewEngine(cfg.QRModulePixels, cfg.MaxFrameWidth)
	svc := service.NewPaymentService(engine, journal, zl, service.Options{
		Currency:       cfg.Currency,
		OpeningBalance: cfg.OpeningBalance,
	})
	handler := api.NewHandler(svc, zl, api.CameraOptions{
		Threshold: cfg.DebounceThreshold,
		Stride:    cfg.FrameStride,
	})

	expiryCtx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go svc.RunExpiry(expiryCtx, time.Minute, cfg.SessionIdle)

	router := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(api.NewRouter(handler))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zl.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}

// openJournal mirrors confirmed payments to Postgres when DB_SOURCE is set.
func openJournal(cfg *config.Config, zl *zap.Logger) store.Journal {
	if cfg.DBSource == "" {
		zl.Info("DB_SOURCE not set, payment journal disabled")
		return store.NopJournal{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	journal, err := store.NewPostgresJournal(ctx, cfg.DBSource)
	if err != nil {
		zl.Fatal("Unable to connect to database", zap.Error(err))
	}
	if err := journal.EnsureSchema(ctx); err != nil {
		zl.Fatal("Unable to prepare payment journal", zap.Error(err))
	}
	return journal
}
