package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/adapters"
	"securequiz/internal/quiz/app"
	"securequiz/internal/quiz/ports"
	"securequiz/internal/scheduler"
	serverHTTP "securequiz/internal/server/http"
	"securequiz/internal/utils/id"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled quiz backend.
type Server struct {
	Config    Config
	Service   *app.Service
	Handler   http.Handler
	store     ports.Store
	scheduler *scheduler.Scheduler
	telemetry Telemetry
	cleanup   []func()
	logger    logging.Logger
}

// NewService wires the lifecycle manager over store using cfg.
func NewService(cfg Config, store ports.Store, telemetry Telemetry, logger logging.Logger) (*app.Service, error) {
	return app.NewService(
		store,
		adapters.NewJWTTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		adapters.NewPasswordHasher(adapters.DefaultArgon2idParams),
		app.Config{RateLimit: cfg.RateLimit, SessionMaxAge: cfg.SessionMaxAge},
		app.WithLogger(logger),
		app.WithMetrics(telemetry.Metrics),
		app.WithTracer(telemetry.Tracer),
	)
}

// Build assembles the store, service, router and scheduler for cfg.
func Build(ctx context.Context, cfg Config) (*Server, error) {
	logger := logging.NewComponentLogger("Main")
	s := &Server{Config: cfg, logger: logger}
	id.SetStrategy(cfg.IDStrategy)

	telemetry, cleanupObs := InitObservability(ctx, cfg.Observability, logger)
	s.telemetry = telemetry
	s.cleanup = append(s.cleanup, cleanupObs)

	store, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.store = store
	s.cleanup = append(s.cleanup, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store: %v", err)
		}
	})

	svc, err := NewService(cfg, store, telemetry, logging.NewComponentLogger("QuizService"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build quiz service: %w", err)
	}
	s.Service = svc

	if err := seedAdmin(ctx, cfg.Auth, svc, logger); err != nil {
		s.Close()
		return nil, err
	}

	sched, err := newScheduler(cfg, svc, logging.NewComponentLogger("Scheduler"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}
	s.scheduler = sched

	s.Handler = serverHTTP.NewRouter(
		serverHTTP.RouterDeps{
			Service:       svc,
			Metrics:       telemetry.Metrics,
			Tracer:        telemetry.Tracer,
			Logger:        logging.NewComponentLogger("Router"),
			LatencyLogger: logging.NewComponentLogger("HTTP"),
		},
		serverHTTP.RouterConfig{
			Environment:    cfg.Environment,
			AllowedOrigins: cfg.AllowedOrigins,
			LoginThrottle:  cfg.LoginThrottle,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			TrustedProxies: cfg.TrustedProxies,
		},
	)
	return s, nil
}

func seedAdmin(ctx context.Context, cfg AuthConfig, svc *app.Service, logger logging.Logger) error {
	if cfg.BootstrapUsername == "" && cfg.BootstrapPassword == "" {
		return nil
	}
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		logger.Warn("Admin bootstrap skipped: ADMIN_USERNAME and ADMIN_PASSWORD must both be set")
		return nil
	}
	if _, err := svc.SeedAdmin(ctx, cfg.BootstrapUsername, cfg.BootstrapEmail, cfg.BootstrapPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// Serve runs the HTTP server on listener and the scheduler until ctx is
// cancelled, then shuts both down.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Server listening on %s", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.scheduler.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.scheduler.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("Server stopped")
		return nil
	})
	return g.Wait()
}

// Close releases the store and telemetry. Safe to call once after Serve returns.
func (s *Server) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}

// RunServer loads configuration, starts the HTTP API and blocks until SIGINT or SIGTERM.
func RunServer(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(logging.Options{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting quiz server...")
	if cfg.UsingDevelopmentSecret {
		logger.Warn("AUTH_JWT_SECRET not set; using the insecure development secret")
	}
	LogServerConfiguration(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer server.Close()

	listener, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}
	return server.Serve(ctx, listener)
}
