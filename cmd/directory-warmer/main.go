package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/editor-api/internal/directory"
	"github.com/yourorg/editor-api/internal/env"
	"github.com/yourorg/editor-api/internal/redisx"
)

// directory-warmer keeps the selector caches warm so the first editor load
// of the day never waits on the CRM.

func main() {
	crmBase := env.Must("CRM_BASE_URL")
	crmKey := env.Get("CRM_API_KEY", "")
	redisAddr := env.Must("REDIS_ADDR")

	interval := env.GetDuration("WARMER_INTERVAL", 10*time.Minute)
	runOnce := env.GetBool("WARMER_RUN_ONCE", false)

	rdb := redisx.New(redisAddr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
	cache := directory.NewCache(rdb, directory.NewClient(crmBase, crmKey),
		env.GetDuration("DIRECTORY_CACHE_TTL", time.Hour),
		env.GetDuration("DIRECTORY_STALE_AFTER", 5*time.Minute))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runOnce {
		warm(rootCtx, cache)
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	warm(rootCtx, cache)
	for {
		select {
		case <-rootCtx.Done():
			return
		case <-t.C:
			warm(rootCtx, cache)
		}
	}
}

func warm(ctx context.Context, cache *directory.Cache) {
	for _, kind := range []directory.Kind{directory.Corretores, directory.Clientes} {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := cache.Refresh(ctx, kind)
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[WARN] warm %s failed: %v", kind, err)
			continue
		}
		if err == nil {
			log.Printf("[INFO] warmed directory %s", kind)
		}
	}
}
