package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kscout/crossdomain-xmlrpc/config"
	"github.com/kscout/crossdomain-xmlrpc/server"
	"github.com/kscout/crossdomain-xmlrpc/services"

	"github.com/Noah-Huppert/golog"
)

// shutdownTimeout is how long in flight calls get to finish after a signal
const shutdownTimeout = 10 * time.Second

func main() {
	// {{{1 Context
	ctx, ctxCancel := context.WithCancel(context.Background())

	// signals holds signals received by process
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signals

		ctxCancel()
	}()

	// {{{1 Logger
	logger := golog.NewStdLogger("crossdomain-xmlrpc")

	// {{{1 Configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("failed to load configuration: %s", err.Error())
	}

	logger.Debugf("loaded configuration: %s", cfg.String())

	// {{{1 Server
	srv, err := server.New(ctx, cfg, logger.GetChild("server"))
	if err != nil {
		logger.Fatalf("failed to create server: %s", err.Error())
	}

	if err := services.Register(srv.Registry()); err != nil {
		logger.Fatalf("failed to register services: %s", err.Error())
	}

	// {{{1 Start HTTP server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to serve: %s", err.Error())
		}
	}()

	logger.Infof("serving %d XML-RPC methods", len(srv.Registry().Methods()))

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("failed to shutdown server: %s", err.Error())
	}

	logger.Info("done")
}
