package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"property_manager/internal/adapters/observability"
	"property_manager/internal/adapters/smoobu"
	"property_manager/internal/app"
	"property_manager/internal/shared"
	mysqlrepo "property_manager/internal/storage/mysql"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	what := flag.String("what", "reservations", "what to sync: reservations|properties|all")
	propertyID := flag.Int64("property", 0, "limit the reservation sync to one local property id")
	flag.Parse()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	switch *what {
	case "reservations", "properties", "all":
	default:
		log.Error().Str("what", *what).Msg("unknown -what, expected reservations|properties|all")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr)

	log.Info().
		Str("base", cfg.SmoobuAPIURL).
		Str("what", *what).
		Int("page_size", cfg.SyncPageSize).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Error().Err(err).Msg("sql.Open failed")
		return 1
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("db.Ping failed")
		return 1
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	channel := smoobu.NewGateway(smoobu.New(cfg.SmoobuAPIURL, cfg.SmoobuBookingURL, cfg.SmoobuKey, cfg.SmoobuRPS))
	svc := app.NewSyncService(channel, repo, cfg.SyncPageSize)
	svc.SetTimeout(cfg.SyncTimeout)

	failed := false
	report := func(kind string, res app.SyncResult, err error) {
		if err != nil {
			failed = true
			log.Error().Err(err).Str("kind", kind).Msg("sync failed")
			return
		}
		for _, e := range res.Errors {
			log.Warn().Str("kind", kind).Str("run_id", res.RunID).Msg(e)
		}
		if len(res.Errors) > 0 {
			failed = true
		}
		log.Info().
			Str("kind", kind).
			Str("run_id", res.RunID).
			Int("synced", res.Synced).
			Int("created", res.Created).
			Int("updated", res.Updated).
			Int("unmapped", len(res.Unmapped)).
			Int("errors", len(res.Errors)).
			Msg("sync completed")
	}

	// properties first so freshly imported apartments get their reservations
	if *what == "properties" || *what == "all" {
		res, err := svc.SyncProperties(ctx)
		report("properties", res, err)
	}
	if *what == "reservations" || *what == "all" {
		var only *int64
		if *propertyID > 0 {
			only = propertyID
		}
		res, err := svc.SyncReservations(ctx, only)
		report("reservations", res, err)
	}

	if failed {
		return 1
	}
	return 0
}
