package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/hilthontt/liveshare/internal/infrastructure/configs"
	"github.com/hilthontt/liveshare/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/liveshare/internal/infrastructure/store"
	"github.com/hilthontt/liveshare/internal/infrastructure/tracing"
	"github.com/hilthontt/liveshare/internal/infrastructure/turnstile"
	"github.com/hilthontt/liveshare/internal/presentation/api"
	"github.com/hilthontt/liveshare/internal/presentation/handler/health"
	"github.com/hilthontt/liveshare/internal/presentation/handler/share"
	"github.com/hilthontt/liveshare/internal/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "liveshare"

func main() {
	_ = godotenv.Load()

	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	roomStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer roomStore.Close()

	registry := session.NewRegistry(roomStore, logger, cfg.Room.TTL, cfg.Room.MaxViewers)
	if err := registry.Restore(ctx); err != nil {
		log.Fatal(err)
	}

	verifier := turnstile.NewVerifier(cfg.Turnstile.Secret)
	shareHandler := share.NewHandler(registry, verifier, logger, cfg.HTTP.AllowedOrigins)
	healthHandler := health.NewHandler()

	rl := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
	defer rl.Close()

	app := api.NewApplication(*cfg, *shareHandler, *healthHandler, logger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
