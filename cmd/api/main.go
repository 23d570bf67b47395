// Command api serves the reconciliation core behind the thin HTTP
// collaborator in internal/server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gmhafiz/reconcile/config"
	"github.com/gmhafiz/reconcile/internal/rates"
	"github.com/gmhafiz/reconcile/internal/server"
)

func main() {
	cfg := config.New()

	rateProv := newRateProvider(cfg)

	srv := server.New(cfg, rateProv)
	srv.InitRoutes()

	httpServer := &http.Server{
		Addr:              cfg.API.Host + ":" + cfg.API.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.GracefulTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}

// newRateProvider wires the configured currency-rate collaborator: a
// Postgres-backed table when configured, a static in-memory table
// otherwise.
func newRateProvider(cfg *config.Config) rates.Provider {
	if cfg.Rates.Source != "postgres" {
		return rates.NewStaticProvider(parseStaticPairs(cfg.Rates.StaticPairs))
	}

	db, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		slog.Error("failed to connect to rates database, falling back to static provider", "err", err)
		return rates.NewStaticProvider(parseStaticPairs(cfg.Rates.StaticPairs))
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return rates.NewPostgresProvider(db)
}

// parseStaticPairs turns "FROM:TO:RATE" entries into the seed map
// rates.NewStaticProvider expects.
func parseStaticPairs(pairs []string) map[string]float64 {
	seed := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		parts := strings.SplitN(p, ":", 3)
		if len(parts) != 3 {
			continue
		}
		rate, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		seed[strings.ToUpper(parts[0])+"->"+strings.ToUpper(parts[1])] = rate
	}
	return seed
}
