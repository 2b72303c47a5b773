package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/studentstay/internal/application"
	"github.com/example/studentstay/internal/config"
	httptransport "github.com/example/studentstay/internal/http"
	"github.com/example/studentstay/internal/logging"
	"github.com/example/studentstay/internal/metrics"
	"github.com/example/studentstay/internal/persistence/sqlite"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand once configuration is loaded.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	envFiles []string
	cfg      config.Config
	logger   *slog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "studentstay",
		Short:         "Student housing booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.userCmd(),
		c.propertyCmd(),
		c.roomCmd(),
	)
	return root
}

func (c *cli) load() error {
	if err := config.LoadDotenv(c.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(c.stderr, cfg.LogLevel)
	return nil
}

// openStorage opens the configured database and, when migrate is set, applies
// pending migrations.
func (c *cli) openStorage(ctx context.Context, migrate bool) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(c.cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if migrate {
		if err := storage.Migrate(logging.ContextWithLogger(ctx, c.logger)); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return storage, nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	storage, err := c.openStorage(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			c.logger.Error("failed to close storage", "error", cerr)
		}
	}()

	collector := metrics.New()
	limiter := httptransport.NewRateLimiter(c.cfg.LoginRateLimit, c.cfg.LoginRateBurst, 10*time.Minute)
	go limiter.Run(ctx, time.Minute)

	handler, err := newHandler(c.cfg, storage, collector, limiter, time.Now, c.logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	c.logger.Info("studentstay API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	c.logger.Info("studentstay API stopped")
	return nil
}

// services groups the application services built over one storage.
type services struct {
	auth     *application.AuthService
	bookings *application.BookingService
	users    *application.UserService
	catalog  *application.CatalogService
}

func newServices(cfg config.Config, storage *sqlite.Storage, recorder application.Recorder, now func() time.Time, logger *slog.Logger) (*services, error) {
	policy, err := application.ParseSessionPolicy(cfg.SessionPolicy)
	if err != nil {
		return nil, err
	}

	userStore := newUserStoreAdapter(storage.Users)
	catalog := newCatalogAdapter(storage.Catalog)

	authService := application.NewAuthServiceWithLogger(
		userStore,
		newSessionRepositoryAdapter(storage.Sessions),
		nil,
		uuid.NewString,
		application.GenerateSessionToken,
		now,
		application.AuthOptions{
			SessionTTL:         cfg.SessionTTL,
			Policy:             policy,
			MaxSessionsPerUser: cfg.MaxSessionsPerUser,
			MaxLoginAttempts:   cfg.MaxLoginAttempts,
			LockoutWindow:      cfg.LockoutWindow,
		},
		logger,
	).WithRecorder(recorder)

	bookingService := application.NewBookingServiceWithLogger(
		catalog,
		newBookingRepositoryAdapter(storage.Bookings),
		uuid.NewString,
		now,
		cfg.Timezone,
		logger,
	).WithRecorder(recorder)

	return &services{
		auth:     authService,
		bookings: bookingService,
		users:    application.NewUserServiceWithLogger(userStore, uuid.NewString, now, logger),
		catalog:  application.NewCatalogServiceWithLogger(catalog, userStore, uuid.NewString, now, logger),
	}, nil
}

func newHandler(cfg config.Config, storage *sqlite.Storage, collector *metrics.Metrics, limiter *httptransport.RateLimiter, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	svc, err := newServices(cfg, storage, collector, now, logger)
	if err != nil {
		return nil, err
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(svc.auth, cfg.CookieSecure, logger),
		Bookings:     httptransport.NewBookingHandler(svc.bookings, logger),
		Sessions:     svc.auth,
		LoginLimiter: limiter,
		Health:       storage,
		Metrics:      collector,
		Logger:       logger,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	}), nil
}
