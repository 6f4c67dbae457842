package cli

import (
	"cmp"
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/cache"
	"github.com/tbourn/go-shipment-tracker/internal/config"
	httpapi "github.com/tbourn/go-shipment-tracker/internal/http"
	"github.com/tbourn/go-shipment-tracker/internal/jobs"
	"github.com/tbourn/go-shipment-tracker/internal/logging"
	"github.com/tbourn/go-shipment-tracker/internal/mailer"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/services"
	"github.com/tbourn/go-shipment-tracker/internal/trackid"
)

const shutdownTimeout = 15 * time.Second

// ServeCmd starts the HTTP API and the idempotency sweeper.
func ServeCmd(version string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, version, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, version, addr string) error {
	logs := logging.Setup(cfg, cfg.OTEL.ServiceName)
	defer logs.Close()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer repo.Close(db)
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	// deferred after Close, so it runs first: notifications finish before
	// the datastore goes away
	var tasks sync.WaitGroup
	defer func() {
		log.Info().Msg("waiting for background notifications")
		tasks.Wait()
	}()

	deps := httpapi.Deps{
		Mailer: newMailer(cfg.Email),
		IDs:    trackid.New(cfg.TrackingPrefix),
		Tasks:  &tasks,
	}
	rc, err := cache.NewRedis(ctx, cfg.Cache)
	if err != nil {
		// the view cache is optional; run uncached rather than refuse to start
		log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, view cache disabled")
	} else if rc != nil {
		defer rc.Close()
		deps.Cache = rc
	}
	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	deps.Verifier = verifier

	stopSweep, err := jobs.Start(ctx, cfg.IdempotencySweepCron, &jobs.IdempotencySweeper{DB: db})
	if err != nil {
		return err
	}
	if stopSweep != nil {
		defer stopSweep()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, deps, cfg)

	srv := newServer(cfg, cmp.Or(addr, ":"+cfg.Port), r)
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}

// newServer applies the configured timeouts and header limit.
func newServer(cfg config.Config, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// newMailer returns a Resend sender when an API key is configured.
func newMailer(cfg config.EmailConfig) mailer.Sender {
	if cfg.ResendAPIKey == "" {
		log.Warn().Msg("RESEND_API_KEY not set, outgoing email disabled")
		return mailer.Noop{}
	}
	return mailer.NewResend(cfg.ResendAPIKey, cfg.From)
}

var _ services.ViewCache = (*cache.Redis)(nil)
