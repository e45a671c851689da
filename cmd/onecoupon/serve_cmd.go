package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"onecoupon/gateway/middleware"
	"onecoupon/gateway/routes"
	"onecoupon/observability/otel"
	"onecoupon/screens"
)

const shutdownTimeout = 10 * time.Second

func runServe(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	listen := fs.String("listen", "", "listen address (defaults to the configured address)")
	readOnly := fs.Bool("read-only", false, "serve without loading the keystore; mutating routes report a disconnected wallet")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := newEnv(g, stdout, slog.LevelInfo)
	if err != nil {
		return fail(stderr, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := otel.Setup(ctx, otel.Options{
		ServiceName: "onecoupon-serve",
		Environment: e.cfg.Logging.Env,
		Network:     e.network,
		Endpoint:    e.cfg.Telemetry.Endpoint,
		Insecure:    e.cfg.Telemetry.Insecure,
		Headers:     otel.ParseHeaders(e.cfg.Telemetry.Headers),
		Traces:      true,
		Metrics:     true,
	})
	if err != nil {
		return fail(stderr, err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			e.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	handler, closeScreens, err := buildServer(e, !*readOnly)
	if err != nil {
		return fail(stderr, err)
	}
	defer closeScreens()

	addr := strings.TrimSpace(*listen)
	if addr == "" {
		addr = e.cfg.Serve.ListenAddress
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      e.cfg.Reconcile.Timeout.Duration + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("serving", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fail(stderr, err)
		}
	case <-ctx.Done():
		e.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "Error: shutdown: %v\n", err)
			return 1
		}
	}
	return 0
}

// buildServer wires the screens behind the serve-mode router.
func buildServer(e *cliEnv, withKey bool) (http.Handler, func(), error) {
	node, err := dialNode(e)
	if err != nil {
		return nil, nil, err
	}
	gate, err := e.gate()
	if err != nil {
		return nil, nil, err
	}
	session, err := e.session(node, withKey)
	if err != nil {
		return nil, nil, err
	}
	deps := e.deps(session, node, gate)
	set := routes.Screens{
		Issue:    screens.NewIssueScreen(deps),
		Coupons:  screens.NewCouponsScreen(deps),
		Faucet:   screens.NewFaucetScreen(deps),
		Activity: screens.NewActivityScreen(deps),
		Network:  screens.NewNetworkScreen(deps),
	}
	serve := e.cfg.Serve
	handler := routes.New(routes.Config{
		Screens: set,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    serve.Auth.Enabled,
			HMACSecret: serve.Auth.HMACSecret,
			Issuer:     serve.Auth.Issuer,
			Audience:   serve.Auth.Audience,
		}, e.logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerMinute: serve.RateLimit.RequestsPerMinute,
			Burst:             serve.RateLimit.Burst,
		}, e.logger),
		Observability: newObservability(e),
		CORS:          middleware.CORSConfig{AllowedOrigins: serve.AllowedOrigins},
		Logger:        e.logger,
	})
	closeScreens := func() {
		set.Issue.Close()
		set.Faucet.Close()
	}
	return handler, closeScreens, nil
}

// Swappable in tests so repeated servers do not collide on the default
// Prometheus registry.
var newObservability = func(e *cliEnv) *middleware.Observability {
	return middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "onecoupon-serve",
		LogRequests: e.cfg.Serve.LogRequests,
	}, e.logger)
}
