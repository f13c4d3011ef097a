// cmd/service/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codehost-api/internal/api"
	"codehost-api/internal/config"
	"codehost-api/internal/github"
	"codehost-api/internal/model"
	"codehost-api/internal/store"
	mongostore "codehost-api/internal/store/mongo"
	"codehost-api/internal/store/postgres"
	"codehost-api/internal/syncer"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "codehost",
		Short:         "Code-hosting resource services over a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.AddCommand(a.serveCmd(), a.migrateCmd(), a.syncCmd())
	return root
}

// init sets up the structured logger and loads configuration.
func (a *app) init() error {
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	a.cfg = cfg
	a.logger.Info("Configuration loaded successfully", "store_driver", cfg.StoreDriver)
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [service...]",
		Short: "Serve one or more resource services over HTTP",
		Long: `Serve starts the HTTP listener for the named services (default: SERVICES).
Valid services: repositories, commits, issues, pull-requests, forks, stars, users, or all.`,
		Example: `  codehost serve repositories
  codehost serve issues users --addr :3001
  codehost serve all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			services := a.cfg.Services
			if len(args) > 0 {
				services = args
			}
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return a.serve(cmd.Context(), services)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store schema migrations and indexes, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeStore(st, a.logger)
			a.logger.Info("Store schema is up to date")
			return nil
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [owner/name...]",
		Short: "Seed repositories and commits from GitHub (default: REPOS_TO_SYNC)",
		Example: `  codehost sync golang/go
  GITHUB_TOKEN=... SYNC_INTERVAL=1h codehost sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repos := a.cfg.ReposToSync
			if len(args) > 0 {
				repos = args
			}
			if len(repos) == 0 {
				return errors.New("no repositories to sync: pass owner/name arguments or set REPOS_TO_SYNC")
			}
			return a.sync(cmd.Context(), repos)
		},
	}
}

// serve opens the store, builds the routing table and runs the HTTP server until ctx is done.
// The listener only starts once the store is reachable.
func (a *app) serve(ctx context.Context, services []string) error {
	st, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, a.logger)
	a.logger.Info("Document store connection established")

	router, err := api.NewRouter(st, a.logger, api.Options{
		RequestTimeout: a.cfg.RequestTimeout,
		MaxBodyBytes:   a.cfg.MaxBodyBytes,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
	}, services...)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Server running", "addr", a.cfg.HTTPAddr, "services", services)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received. Exiting.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (a *app) sync(ctx context.Context, repos []string) error {
	st, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, a.logger)

	ghClient := github.NewClient(a.cfg.GithubToken, a.logger)
	appSyncer, err := syncer.NewSyncer(st, ghClient, a.logger, repos, syncer.Options{
		Interval:     a.cfg.SyncInterval,
		Concurrency:  a.cfg.SyncConcurrency,
		DefaultSince: a.cfg.SyncSinceTime,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}
	return appSyncer.Start(ctx)
}

// openStore connects to the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(cfg.DBURL); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return st, nil
	default:
		st, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx, model.IndexedFields); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		return st, nil
	}
}

func closeStore(st store.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		logger.Error("Failed to close document store", "error", err)
	}
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
