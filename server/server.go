// Package server assembles the CORS enabled XML-RPC HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kscout/crossdomain-xmlrpc/config"
	"github.com/kscout/crossdomain-xmlrpc/dispatch"
	"github.com/kscout/crossdomain-xmlrpc/handlers"
	"github.com/kscout/crossdomain-xmlrpc/metrics"

	"github.com/Noah-Huppert/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves XML-RPC calls over HTTP
type Server struct {
	// cfg is the server configuration
	cfg *config.Config

	// logger logs server lifecycle events
	logger golog.Logger

	// registry holds the callable methods
	registry *dispatch.Registry

	// handler is the root of the handler chain
	handler http.Handler

	// httpServer listens for connections
	httpServer *http.Server
}

// New creates a Server. Services are registered on Registry() before calls are
// served.
func New(ctx context.Context, cfg *config.Config, logger golog.Logger) (*Server, error) {
	// {{{1 Dispatch
	registry := dispatch.NewRegistry(dispatch.Options{
		AllowNone:      cfg.AllowNone,
		DefaultService: cfg.DefaultService,
	}, logger.GetChild("dispatch"))

	if cfg.Introspection {
		if err := registry.RegisterIntrospection(); err != nil {
			return nil, fmt.Errorf("failed to register introspection methods: %s", err.Error())
		}
	}

	var dispatcher dispatch.Dispatcher = registry
	if len(cfg.RPCPaths) > 0 {
		paths := dispatch.NewMultiPath()
		for _, path := range cfg.RPCPaths {
			paths.Add(path, registry)
		}
		dispatcher = paths
	}

	// {{{1 Metrics
	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewMetrics(promRegistry)

	// {{{1 Router
	baseHandler := handlers.BaseHandler{
		Ctx:     ctx,
		Logger:  logger.GetChild("handlers"),
		Cfg:     cfg,
		Metrics: metricsRecorder,
	}

	conn := handlers.NewConnHandler(baseHandler.GetChild("conn"), handlers.RPCEndpoint{
		Preflight: handlers.PreFlightOptionsHandler{
			BaseHandler: baseHandler.GetChild("preflight"),
		},
		RPC: handlers.RPCHandler{
			BaseHandler: baseHandler.GetChild("rpc"),
			Dispatcher:  dispatcher,
		},
	})

	conn.HandleGet("/health", handlers.HealthHandler{
		BaseHandler: baseHandler.GetChild("health"),
		Methods:     registry,
	})
	conn.HandleGet("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	handler := handlers.CORSHandler{
		BaseHandler: baseHandler,
		Handler: handlers.PanicHandler{
			BaseHandler: baseHandler,
			Handler: handlers.ReqLoggerHandler{
				BaseHandler: baseHandler.GetChild("request"),
				Handler: handlers.MetricsHandler{
					BaseHandler: baseHandler,
					Handler:     conn,
				},
			},
		},
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		handler:  handler,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Registry returns the method registry calls are dispatched to
func (s *Server) Registry() *dispatch.Registry {
	return s.registry
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves HTTP on the configured port until Shutdown is called.
// It returns http.ErrServerClosed after a shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("starting server on %s, rpc paths %v", s.httpServer.Addr, s.cfg.RPCPaths)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops a server started by ListenAndServe
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
