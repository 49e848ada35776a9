package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/habitauth/internal/auth/audit"
	httpapi "github.com/aussiebroadwan/habitauth/internal/auth/http"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/habitauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/habitauth/internal/auth/throttle"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	metrics    *metrics.Metrics
	audit      *audit.Dispatcher
	natsSink   *audit.NATSSink
	redis      *redis.Client

	tokenService         *service.TokenService
	userService          *service.UserService
	passwordResetService *service.PasswordResetService
	keyRotationService   *service.KeyRotationService
	housekeepingService  *service.HousekeepingService

	server          *http.Server
	router          *httpapi.Router
	shutdownTracing func(context.Context) error
}

// New builds the application. Resources opened before a failure are closed
// before returning.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *Application) init(ctx context.Context) error {
	if err := app.initDatabase(ctx); err != nil {
		return err
	}

	keyManager, err := InitAuthKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initAudit(); err != nil {
		return err
	}
	if err := app.initServices(ctx); err != nil {
		return err
	}
	return app.initHTTP(ctx)
}

// Run serves HTTP and runs housekeeping until SIGINT/SIGTERM or a server
// failure, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.housekeepingService.Start()
	app.logger.Info("auth service starting", "addr", app.cfg.Addr, "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested")
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains HTTP requests, stops background work and closes every
// connection.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		errs = append(errs, app.server.Close())
	}

	app.housekeepingService.Stop()

	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Warn("tracer shutdown failed", "error", err)
	}

	errs = append(errs, app.close())
	app.logger.Info("auth service stopped")
	return errors.Join(errs...)
}

// close releases connections in reverse order of acquisition. The audit
// dispatcher is flushed before its NATS sink closes.
func (app *Application) close() error {
	app.audit.Close()
	app.natsSink.Close()

	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DBDSN)
	default:
		db, err = sqlite.NewStore(app.cfg.DBDSN)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied", "driver", app.cfg.DBDriver)
	return nil
}

// initAudit always logs audit events and additionally publishes them to
// JetStream when AUTH_NATS_URL is set.
func (app *Application) initAudit() error {
	sinks := audit.MultiSink{audit.SlogSink{Logger: app.logger}}

	if app.cfg.NATSURL != "" {
		sink, err := audit.NewNATSSink(app.cfg.NATSURL, app.cfg.AuditSubject, app.logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		app.natsSink = sink
		sinks = append(sinks, sink)
		app.logger.Info("audit events published to nats", "subject", app.cfg.AuditSubject)
	}

	app.audit = audit.NewDispatcher(audit.Config{
		Enabled:    true,
		BufferSize: 1024,
		DropIfFull: true,
	}, sinks)
	return nil
}

func (app *Application) initServices(ctx context.Context) error {
	hasher, err := InitPasswordHasher(app.cfg)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.tokenService = &service.TokenService{
		Store:        app.db,
		KeyManager:   app.keyManager,
		Issuer:       app.cfg.Issuer,
		Audience:     app.cfg.Audience,
		AccessTTL:    app.cfg.AccessTTL,
		RefreshTTL:   app.cfg.RefreshTTL,
		ReplayWindow: app.cfg.ReplayWindow,
		Metrics:      app.metrics,
		Audit:        app.audit,
	}

	app.userService = &service.UserService{
		Store:   app.db,
		Tokens:  app.tokenService,
		Hasher:  hasher,
		Metrics: app.metrics,
		Audit:   app.audit,
	}

	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		app.userService.Throttle = throttle.NewLoginLimiter(app.redis, throttle.Config{
			MaxAttempts: app.cfg.LoginMaxAttempts,
			Cooldown:    app.cfg.LoginCooldown,
			PerIP:       true,
		})
		app.logger.Info("login throttle enabled", "max_attempts", app.cfg.LoginMaxAttempts, "cooldown", app.cfg.LoginCooldown)
	}

	app.passwordResetService = &service.PasswordResetService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Hasher:   hasher,
		Notifier: service.LogNotifier{Reveal: app.cfg.RevealResetTokens},
		Audit:    app.audit,
	}

	app.keyRotationService = &service.KeyRotationService{
		Store:      app.db,
		KeyManager: app.keyManager,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RefreshRetention,
	)
	return nil
}

func (app *Application) initHTTP(ctx context.Context) error {
	router := httpapi.NewRouter(app.keyManager, BuildVersion, app.db, app.logger)
	router.Metrics = app.metrics
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.PasswordResetService = app.passwordResetService
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()
	app.router = router

	wrap, shutdown, err := initTracing(ctx, app.cfg.OTLPEndpoint, BuildVersion)
	if err != nil {
		return err
	}
	app.shutdownTracing = shutdown
	if app.cfg.OTLPEndpoint != "" {
		app.logger.Info("tracing enabled", "endpoint", app.cfg.OTLPEndpoint)
	}

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           wrap(router),
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
