package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"noticerecon/internal/datahive"
	"noticerecon/internal/mha/handler"
	"noticerecon/internal/mha/service"
	"noticerecon/internal/mha/stage"
	"noticerecon/internal/notice/store"
	"noticerecon/internal/platform/config"
	"noticerecon/internal/platform/httpserver"
	"noticerecon/internal/platform/logger"
	"noticerecon/internal/platform/metrics"
	platformredis "noticerecon/internal/platform/redis"
)

// main wires the reconciliation engine together and keeps the server
// lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.AdminToken == "" {
		log.Error("RECON_ADMIN_TOKEN is required")
		os.Exit(1)
	}
	if cfg.DatabaseDSN == "" {
		log.Error("RECON_DATABASE_DSN is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	cancelPing()

	stages, err := stage.New(cfg.Recon.Stages)
	if err != nil {
		log.Error("invalid stage ladder", "error", err)
		os.Exit(1)
	}

	var opts []service.Option
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithDedupe(service.NewRedisDedupe(redisClient)))
		log.Info("redis dedupe enabled")
	}

	svc, err := service.New(
		store.NewPostgres(db),
		datahive.NewClient(cfg.Lookup, log),
		newNoticePostgresTx(db),
		stages,
		cfg,
		metrics.New(),
		log,
		opts...,
	)
	if err != nil {
		log.Error("build service", "error", err)
		os.Exit(1)
	}

	router := handler.New(svc, log, cfg.AdminToken, cfg.TestMode).Router()
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting notice reconciliation service",
			"addr", cfg.Addr,
			"test_mode", cfg.TestMode,
			"workers", cfg.Recon.Workers,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
