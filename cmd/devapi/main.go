package main // Entry point of the development REST backend

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/config"
	"github.com/iliyamo/rental-portal/internal/database"
	"github.com/iliyamo/rental-portal/internal/handler"
	"github.com/iliyamo/rental-portal/internal/logger"
	"github.com/iliyamo/rental-portal/internal/middleware"
	"github.com/iliyamo/rental-portal/internal/repository"
	"github.com/iliyamo/rental-portal/internal/router"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run wires the devapi and blocks until shutdown.  Errors are logged here and
// returned so deferred closes run before the process exits.
func run() error {
	cfg, err := config.LoadDevAPI()
	if err != nil {
		bootLog := logger.New("devapi", "info", nil)
		bootLog.Error().Err(err).Msg("load config")
		return err
	}
	log := logger.New("devapi", cfg.LogLevel, nil)

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("open database")
		return err
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)

	if err := prepare(cfg, db, users, roles, perms, log); err != nil {
		return err
	}

	// Redis only backs the login throttle; without it logins are unthrottled.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil && cfg.RateLimit.Enabled {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unreachable, login throttle disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}
	throttle := middleware.NewTokenBucket(cfg.RateLimit, rdb, logger.Component(log, "ratelimit"))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, handler.NewHealthHandler(db))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, logger.Component(log, "auth")), throttle)
	router.RegisterAccess(e, handler.NewAccessHandler(perms, roles, users, logger.Component(log, "access")), cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("env", cfg.Env).Msg("starting")
	if err := serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}

// prepare migrates and seeds the database when configured to.
func prepare(cfg config.DevAPI, db *sql.DB, users *repository.UserRepo, roles *repository.RoleRepo, perms *repository.PermissionRepo, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error().Err(err).Msg("migrate")
			return err
		}
	}
	if cfg.Seed {
		seeded, err := repository.Seed(ctx, users, roles, perms, cfg.SeedPassword, cfg.BcryptCost)
		if err != nil {
			log.Error().Err(err).Msg("seed")
			return err
		}
		if seeded {
			log.Info().Msg("seeded default accounts")
		}
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
