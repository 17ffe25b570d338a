package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"harvesthub-backend/internal/config"
	"harvesthub-backend/internal/env"
	"harvesthub-backend/internal/infrastructure/maps"
	"harvesthub-backend/internal/infrastructure/razorpay"
	"harvesthub-backend/internal/infrastructure/repo"
	"harvesthub-backend/internal/metrics"
	"harvesthub-backend/internal/server"
	"harvesthub-backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	env.Load(".env", ".env.local")
	if err := newRootCommand(config.EnvDefaults()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "harvesthub",
		Short:         "HarvestHub marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&cfg.Env, "env", cfg.Env, "deployment environment (dev enables relaxed secrets)")
	f.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "memory, postgres or sqlite")
	f.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "database DSN")
	f.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit JSON logs")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	sf := serve.Flags()
	sf.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	sf.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HMAC secret for access tokens")
	sf.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "access token lifetime")
	sf.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "expose /metrics")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serve, migrate)
	return root
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

type store interface {
	usecase.IdentityRepo
	usecase.LoginAttemptRepo
	usecase.ListingRepo
	usecase.OrderRepo
	usecase.PaymentRepo
	usecase.DeliveryRepo
}

func openStore(ctx context.Context, cfg config.Config) (store, func(context.Context) error, func() error, error) {
	if cfg.DBDriver == "memory" {
		return repo.NewMemoryStore(), nil, func() error { return nil }, nil
	}
	s, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	return s, s.DB().PingContext, s.Close, nil
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg)
	if cfg.DBDriver == "memory" {
		return errors.New("migrate needs a postgres or sqlite database")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer s.Close()
	v, err := repo.SchemaVersion(ctx, s.DB())
	if err != nil {
		return err
	}
	log.Info("schema up to date", "driver", cfg.DBDriver, "version", v)
	return nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg)
	slog.SetDefault(log)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		log.Warn("no jwt secret configured, using an ephemeral one")
	}
	gin.SetMode(gin.ReleaseMode)

	st, ready, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	tokens := usecase.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	planner := &maps.Client{
		Key:           cfg.MapsAPIKey,
		GeocodeURL:    cfg.MapsGeocodeURL,
		DistanceURL:   cfg.MapsDistanceURL,
		DirectionsURL: cfg.MapsDirectionsURL,
		Timeout:       cfg.MapsTimeout,
		Retry:         maps.DefaultRetryConfig,
		Logger:        log.With("component", "maps"),
		Metrics:       m,
	}
	gateway := &razorpay.Client{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayURL,
		Timeout:   cfg.GatewayTimeout,
		Logger:    log.With("component", "razorpay"),
		Metrics:   m,
	}

	srv := server.New(cfg, server.Deps{
		Auth: &usecase.AuthService{
			Identities: st,
			Audit:      &usecase.LoginAudit{Repo: st, Logger: log, Metrics: m},
			Tokens:     tokens,
			Hasher:     usecase.BcryptHasher{},
		},
		Tokens:   tokens,
		Listings: &usecase.ListingService{Listings: st, Identities: st},
		Checkout: &usecase.CheckoutService{
			Orders:     st,
			Identities: st,
			Planner:    planner,
			Metrics:    m,
			Logger:     log.With("component", "checkout"),
		},
		Payments: &usecase.PaymentService{
			Gateway:  gateway,
			Payments: st,
			Orders:   st,
			Currency: cfg.Currency,
			Logger:   log.With("component", "payments"),
		},
		Deliveries: &usecase.DeliveryService{Deliveries: st, Orders: st, Listings: st},
		Planner:    planner,
		Metrics:    m,
		Logger:     log,
		Ready:      ready,
	})

	hs := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", hs.Addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	return g.Wait()
}
