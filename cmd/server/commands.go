package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/home-services/internal/config"
	"github.com/iliyamo/home-services/internal/handler"
	"github.com/iliyamo/home-services/internal/metrics"
	"github.com/iliyamo/home-services/internal/middleware"
	"github.com/iliyamo/home-services/internal/queue"
	"github.com/iliyamo/home-services/internal/router"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("", reg)
	svc := newAuthService(cfg, store, m)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := seedAdmin(ctx, svc, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	if cfg.IsDev() {
		e.Logger.SetLevel(glog.DEBUG)
	} else {
		e.Logger.SetLevel(glog.INFO)
	}
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
	}))

	// Rate limiting degrades to a no-op when Redis is unreachable.
	var limits router.AuthLimits
	if rl := cfg.RateLimit; rl.Enabled {
		rdb := config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			log.Printf("redis unavailable at %s; rate limiting disabled", cfg.Redis.Addr)
		} else {
			defer rdb.Close()
			lim := middleware.NewRedisLimiter(rdb)
			limits.Login = middleware.CredentialLimit(lim, middleware.BucketLogin, rl.Login, rl, m)
			limits.Register = middleware.CredentialLimit(lim, middleware.BucketRegister, rl.Register, rl, m)
		}
	}

	router.RegisterRoutes(e, m)
	router.RegisterAuth(e, handler.NewAuthHandler(svc, cfg.CookieSecure), limits)
	pages := echo.HandlerFunc(handler.NoPages)
	if cfg.WebRoot != "" {
		pages = handler.NewPages(cfg.WebRoot).Serve
	}
	router.RegisterPages(e, pages, svc.Tokens(), m)

	if cfg.EventsEnabled {
		go func() {
			if err := queue.StartRegistrationConsumer(ctx, cfg.AMQPURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("registration consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store's tables (or the JSON data file) and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log.Printf("store %s is ready", cfg.StoreDriver)
			return store.Close()
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin principal if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.AdminEmail
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return errors.New("admin email and password are required (--email/--password or ADMIN_EMAIL/ADMIN_PASSWORD)")
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return seedAdmin(cmd.Context(), newAuthService(cfg, store, nil), email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (default $ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default $ADMIN_PASSWORD)")
	return cmd
}

func consumeEventsCmd() *cobra.Command {
	var logDir string
	cmd := &cobra.Command{
		Use:   "consume-events",
		Short: "Append principal.registered events to the registration log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logDir == "" {
				logDir = cfg.EventLogDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Printf("consuming %s into %s", queue.RegistrationQueue, logDir)
			err = queue.StartRegistrationConsumer(ctx, cfg.AMQPURL, logDir)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for registrations.log (default $EVENT_LOG_DIR)")
	return cmd
}
