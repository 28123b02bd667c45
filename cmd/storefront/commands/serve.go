package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/client"
	"storefront/internal/server"
	"storefront/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	if cfg.SQL() {
		if err := migrate(ctx, a); err != nil {
			return err
		}
	}

	sessions, err := a.sessions()
	if err != nil {
		return err
	}
	defer sessions.Close()

	svc := a.services()

	var verifier client.TokenVerifier
	if cfg.Supabase.JWTSecret != "" {
		verifier = client.NewTokenVerifier(cfg.Supabase.JWTSecret)
	}
	proxies, err := cfg.HTTP.ProxyNets()
	if err != nil {
		return err
	}
	opts := server.Options{
		Sessions:           sessions,
		Verifier:           verifier,
		PageSize:           cfg.Shop.PageSize,
		AdminEmailSuffix:   cfg.Auth.AdminEmailSuffix,
		ProfileWaitTimeout: cfg.Auth.ProfileWaitTimeout,
		RateLimitRPS:       cfg.RateLimit.RPS,
		RateLimitBurst:     cfg.RateLimit.Burst,
		SecureCookies:      cfg.Environment.Name == "production",
		TrustedProxies:     proxies,
	}
	if cfg.SQL() {
		opts.UploadsDir = cfg.Storage.LocalDir
	}

	srv := server.NewServer(server.Services{
		Products:   svc.products,
		Categories: svc.categories,
		Orders:     svc.orders,
		Media:      svc.media,
		Accounts:   svc.accounts,
	}, opts, log)

	// Sweeping needs to see every user's orders.
	if cfg.SQL() || cfg.Supabase.ServiceKey != "" {
		sweeper, err := worker.NewSweeper(cfg.Sweeper.Schedule, svc.orders, cfg.Sweeper.OrphanAge, log)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sweeper.Stop(stopCtx)
		}()
	} else {
		log.Warn("no service key configured, orphan order sweeper disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr()).Info("starting HTTP server")
		if err := srv.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("signal received, starting graceful shutdown")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
