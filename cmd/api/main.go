package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "property_manager/internal/adapters/http_server"
	"property_manager/internal/adapters/observability"
	redisad "property_manager/internal/adapters/redis"
	"property_manager/internal/adapters/smoobu"
	"property_manager/internal/app"
	"property_manager/internal/shared"
	mysqlrepo "property_manager/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// projections fall back to the database on cache errors
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, serving uncached")
	}
	channel := smoobu.NewGateway(smoobu.New(cfg.SmoobuAPIURL, cfg.SmoobuBookingURL, cfg.SmoobuKey, cfg.SmoobuRPS))

	rates := app.NewRateService(repo, repo, cache, cfg.CacheTTL)
	syncSvc := app.NewSyncService(channel, repo, cfg.SyncPageSize)
	syncSvc.SetTimeout(cfg.SyncTimeout)
	handlers := &server.Handlers{
		Sync:       syncSvc,
		Rates:      rates,
		Calendar:   app.NewCalendarService(repo, channel),
		Messages:   app.NewMessageService(repo, channel),
		Properties: app.NewPropertyService(repo, rates),
	}

	// http
	srv := server.New(server.DefaultRequestTimeout, cfg.SyncTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
