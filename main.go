package main

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

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"checkout/payments"
	"checkout/web"
)

const Domain = "checkout"

func main() {
	app := &cli.App{
		Name:   Domain,
		Usage:  "shopping bag checkout with hosted Stripe payment",
		Flags:  flags(),
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := configFromContext(c)
	opts, err := serverOptions(cfg, logger)
	if err != nil {
		return err
	}
	srv, err := web.NewServer(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, srv.Handler(), logger)
}

func serverOptions(cfg Config, logger *zap.Logger) (web.Options, error) {
	if cfg.StripeSecretKey == "" && cfg.SessionEndpoint == "" {
		return web.Options{}, errors.New("STRIPE_SECRET_KEY or SESSION_ENDPOINT is required")
	}

	opts := web.Options{BasketCapacity: cfg.BasketCapacity, Logger: logger}

	var lookup payments.SessionLookup
	if cfg.StripeSecretKey != "" {
		stripeSessions := payments.NewStripeSessions(payments.StripeConfig{
			SecretKey:         cfg.StripeSecretKey,
			APIURL:            cfg.StripeAPIURL,
			Origin:            cfg.PublicOrigin,
			ShippingCountries: cfg.ShippingCountries,
			ShippingRate:      cfg.ShippingRate,
			MaxRetries:        cfg.StripeMaxRetries,
		}, logger.Named("stripe"))
		opts.Sessions = stripeSessions
		lookup = stripeSessions
	}

	if cfg.SessionEndpoint != "" {
		opts.Checkout = payments.NewSessionClient(cfg.SessionEndpoint, nil)
		logger.Info("using remote session endpoint", zap.String("endpoint", cfg.SessionEndpoint))
	}

	pages, err := payments.NewHostedPages(cfg.BasketCapacity, lookup)
	if err != nil {
		return web.Options{}, err
	}
	opts.Pages = pages
	return opts, nil
}

func serve(ctx context.Context, cfg Config, handler http.Handler, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", ":"+cfg.HealthPort)
	if err != nil {
		return fmt.Errorf("listen on health port %s: %w", cfg.HealthPort, err)
	}
	grpcServer, health := newHealthServer(Domain)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("checkout server started", zap.String("domain", Domain), zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("health server started", zap.String("port", cfg.HealthPort))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	return nil
}
