package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fahndungsportal/internal/cache"
	"fahndungsportal/internal/config"
	"fahndungsportal/internal/database"
	"fahndungsportal/internal/handler"
	"fahndungsportal/internal/middleware"
	"fahndungsportal/internal/proxy"
	"fahndungsportal/internal/router"
	"fahndungsportal/internal/service"
	"fahndungsportal/internal/session"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flagPort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Override SERVER_PORT")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = flagPort
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Msg("starting fahndungsportal API server")

	client, err := newCMSClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize CMS client: %w", err)
	}

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer closeStore()

	cmsProxy, err := proxy.New(cfg.CMS.BaseURL, &http.Client{Timeout: cfg.CMS.Timeout()}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize proxy: %w", err)
	}

	// Initialize services
	responses := cache.New(cache.WithMaxEntries(cfg.CMS.CacheMaxEntries))
	fahndungService := service.NewFahndungService(client, responses, cfg.CMS.CacheTTL(), logger)
	contentService := service.NewContentService(client, responses, cfg.CMS.CacheTTL(), logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Fahndung:   handler.NewFahndungHandler(fahndungService, logger),
		Content:    handler.NewContentHandler(contentService, logger),
		Revalidate: handler.NewRevalidateHandler(cfg.Revalidate.Secret, responses, logger),
		Auth: handler.NewAuthHandler(client, store, handler.AuthConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL(),
			Secure:     isHTTPS(cfg.Site.PublicBaseURL),
		}, logger),
		Proxy: cmsProxy,
	}

	mux := router.New(handlers, router.Options{
		PublicOrigin: cfg.Site.PublicBaseURL,
		Gate: middleware.GateConfig{
			CookieName:        cfg.Session.CookieName,
			ProtectedPrefixes: cfg.Session.ProtectedPaths,
			LoginPath:         cfg.Session.LoginPath,
		},
		Sessions:            store,
		RevalidatePerMinute: cfg.Revalidate.RatePerMinute,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.CMS.Timeout(),
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
		return nil
	})

	if sweeper, ok := store.(*session.PostgresStore); ok {
		g.Go(func() error {
			sweepSessions(gctx, sweeper, 10*time.Minute, logger)
			return nil
		})
	}

	return g.Wait()
}

// newSessionStore selects the session store configured by SESSION_STORE.
func newSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "memory":
		logger.Info().Msg("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewPostgresStore(pool, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("using PostgreSQL session store")
		return store, pool.Close, nil
	default:
		logger.Info().Msg("session store disabled, auth gate checks cookie presence only")
		return session.NullStore{}, func() {}, nil
	}
}

func sweepSessions(ctx context.Context, store *session.PostgresStore, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("failed to delete expired sessions")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("expired sessions deleted")
			}
		}
	}
}
