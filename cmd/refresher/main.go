package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"villa_dnft/internal/adapters/observability"
	redisad "villa_dnft/internal/adapters/redis"
	"villa_dnft/internal/adapters/sui"
	"villa_dnft/internal/app"
	"villa_dnft/internal/shared"
)

// refresher warms the snapshot cache for REFRESH_OWNERS so the API can
// answer ?cached=true without touching the chain.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogFile)

	log.Info().
		Str("rpc", cfg.SuiRPCURL).
		Int("workers", cfg.Workers).
		Int("owners", len(cfg.Owners)).
		Msg("refresher starting")

	if len(cfg.Owners) == 0 {
		log.Warn().Msg("REFRESH_OWNERS is empty, nothing to do")
		return
	}

	chain, err := sui.New(cfg.SuiRPCURL, cfg.SuiRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Sui client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	contract := cfg.Contract
	svc := app.NewRefreshService(chain, cache, &contract, cfg.CacheTTL)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg    sync.WaitGroup
		stale atomic.Int64
	)

	for _, owner := range cfg.Owners {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			defer sem.Release(1)

			snap := svc.Refresh(ctx, owner)
			if snap.Stale {
				stale.Add(1)
				log.Warn().Str("owner", owner).Msg("refresh failed, cache left as is")
				return
			}
			log.Info().Str("owner", owner).Int("villas", len(snap.Villas)).Msg("refresh ok")
		}(owner)
	}

	wg.Wait()
	log.Info().Int64("stale", stale.Load()).Msg("refresh completed")
}
