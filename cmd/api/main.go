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

	server "villa_dnft/internal/adapters/http_server"
	"villa_dnft/internal/adapters/observability"
	redisad "villa_dnft/internal/adapters/redis"
	"villa_dnft/internal/adapters/sui"
	"villa_dnft/internal/adapters/wallet"
	"villa_dnft/internal/app"
	"villa_dnft/internal/domain"
	"villa_dnft/internal/shared"
	mysqlrepo "villa_dnft/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogFile)

	observability.Serve(cfg.MetricsAddr)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, snapshots stay in memory")
	}

	// wallet bridge is optional; without it the API can preview but not submit
	var (
		accounts domain.AccountProvider
		opts     = []sui.Option{sui.WithGasBudget(cfg.GasBudget)}
	)
	if cfg.WalletURL != "" {
		br, err := wallet.New(cfg.WalletURL)
		if err != nil {
			log.Fatal().Err(err).Msg("wallet bridge init failed")
		}
		accounts = br
		opts = append(opts, sui.WithSigner(br))
	}

	chain, err := sui.New(cfg.SuiRPCURL, cfg.SuiRPS, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Sui client")
	}

	contract := cfg.Contract
	refresh := app.NewRefreshService(chain, cache, &contract, cfg.CacheTTL)
	cmds := app.NewCommandService(app.NewBuilder(&contract), chain, accounts, mysqlrepo.New(db), refresh)

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.Handler())
	srv.MountHandlers(&server.Handlers{C: cmds, R: refresh, Accounts: accounts})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdown)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("package", contract.PackageID).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
