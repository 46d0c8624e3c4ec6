package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/liveshare/internal/infrastructure/configs"
	"github.com/hilthontt/liveshare/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/liveshare/internal/presentation/handler/health"
	shareHandler "github.com/hilthontt/liveshare/internal/presentation/handler/share"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Application struct {
	config        configs.Config
	shareHandler  shareHandler.Handler
	healthHandler healthHandler.Handler
	logger        *zap.SugaredLogger
	ratelimiter   *ratelimiter.FixedWindowRateLimiter
}

func NewApplication(
	config configs.Config,
	shareHandler shareHandler.Handler,
	healthHandler healthHandler.Handler,
	logger *zap.SugaredLogger,
	ratelimiter *ratelimiter.FixedWindowRateLimiter,
) *Application {
	return &Application{
		config:        config,
		shareHandler:  shareHandler,
		healthHandler: healthHandler,
		logger:        logger,
		ratelimiter:   ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(time.Minute))

		r.Route("/share", func(r chi.Router) {
			r.With(app.rateLimiterMiddleware, app.requireEditorRequest).
				Post("/start", app.shareHandler.StartHandler)
			r.Post("/stop", app.shareHandler.StopHandler)
			r.Get("/snapshot/{key}", app.shareHandler.SnapshotHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	// WebSocket upgrades bypass the chi timeout middleware on purpose:
	// relay sockets stay open for the life of the room.
	r.Get("/ws/{key}", app.shareHandler.SocketHandler)

	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "liveshare")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		// Server timeouts don't apply to upgraded sockets: gorilla hijacks
		// the connection before they would bite.
		Handler:      mux,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
