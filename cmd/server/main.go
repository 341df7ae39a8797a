package main // Entry point of the portal process

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/backend"
	"github.com/iliyamo/rental-portal/internal/config"
	"github.com/iliyamo/rental-portal/internal/console"
	"github.com/iliyamo/rental-portal/internal/gate"
	"github.com/iliyamo/rental-portal/internal/logger"
	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/portal"
	"github.com/iliyamo/rental-portal/internal/queue"
	"github.com/iliyamo/rental-portal/internal/session"
	"github.com/iliyamo/rental-portal/internal/storage"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run wires the portal and blocks until shutdown.  It returns instead of
// exiting so deferred cleanup (the event publisher) always runs.
func run() error {
	cfg, err := config.LoadPortal()
	if err != nil {
		bootLog := logger.New("portal", "info", nil)
		bootLog.Error().Err(err).Msg("load config")
		return err
	}
	log := logger.New("portal", cfg.LogLevel, nil)
	m := metrics.New()

	src := newBackend(cfg, log)
	kv := newStorage(cfg, log)
	events := newPublisher(cfg, log)
	if c, ok := events.(*queue.AMQPPublisher); ok {
		defer c.Close()
	}

	store := session.NewStore(src, kv,
		session.WithLogger(logger.Component(log, "session")),
		session.WithMetrics(m),
		session.WithPublisher(events),
	)
	initCtx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	if err := store.Initialize(initCtx); err != nil {
		log.Warn().Err(err).Msg("restore session")
	}
	cancel()

	g := gate.New(store, "/login", "/unauthorized", m, logger.Component(log, "gate"))
	svc := console.NewService(src, g, events, m, logger.Component(log, "console"))
	h := portal.NewHandler(store, g, svc, logger.Component(log, "http"))
	h.Timeout = cfg.APITimeout

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))
	portal.Register(e, h, m.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("env", cfg.Env).Str("data_source", cfg.DataSource).Msg("starting")
	if err := serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}

// serve runs e until ctx is done or the listener fails, then shuts down
// with a 10s grace period.
func serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newBackend picks the data source.  Validate has already refused the
// fixture in production.
func newBackend(cfg config.Portal, log zerolog.Logger) backend.Backend {
	if cfg.DataSource == config.DataSourceFixture {
		log.Warn().Msg("using fixture data source; accounts use the seed password")
		return backend.NewFixture()
	}
	return backend.NewHTTP(cfg.APIBaseURL, cfg.APITimeout)
}

func newStorage(cfg config.Portal, log zerolog.Logger) storage.SessionStorage {
	if cfg.Storage == config.StorageMemory {
		return storage.NewMemory()
	}
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unreachable, session will not survive restarts")
		return storage.NewMemory()
	}
	return storage.NewRedis(rdb, cfg.KeyPrefix)
}

func newPublisher(cfg config.Portal, log zerolog.Logger) queue.Publisher {
	if !cfg.Events.Enabled {
		return queue.Noop{}
	}
	p, err := queue.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, logger.Component(log, "events"))
	if err != nil {
		log.Warn().Err(err).Msg("event bus unavailable, events disabled")
		return queue.Noop{}
	}
	return p
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
