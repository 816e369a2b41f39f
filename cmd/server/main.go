// Package main is the entry point for the L2 Gas-Optimized Router, an HTTP
// service that estimates native transfer fees across several L2 networks,
// picks the cheapest one and optionally signs and broadcasts the transfer.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/karthikeyanvcb/l2-router-bot/internal/chain"
	"github.com/karthikeyanvcb/l2-router-bot/internal/circuitbreaker"
	"github.com/karthikeyanvcb/l2-router-bot/internal/config"
	"github.com/karthikeyanvcb/l2-router-bot/internal/dispatch"
	"github.com/karthikeyanvcb/l2-router-bot/internal/estimate"
	"github.com/karthikeyanvcb/l2-router-bot/internal/oracle"
	"github.com/karthikeyanvcb/l2-router-bot/internal/otel"
	"github.com/karthikeyanvcb/l2-router-bot/internal/registry"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server wires the registry, estimator and dispatcher behind the HTTP facade.
type Server struct {
	config     config.Config
	registry   registry.Registry
	estimator  *estimate.Estimator
	dispatcher *dispatch.Dispatcher
	breaker    *circuitbreaker.Breaker
	metrics    *serverMetrics
	rateLimit  *rate.Limiter
	server     *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	estimateErrors  *prometheus.CounterVec
	chosenNetwork   *prometheus.CounterVec
	lastFeeWei      *prometheus.GaugeVec
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2router_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "l2router_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		estimateErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2router_estimate_errors_total",
				Help: "Total number of per-network estimation failures",
			},
			[]string{"network"},
		),
		chosenNetwork: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2router_chosen_network_total",
				Help: "Times each network was selected as the cheapest route",
			},
			[]string{"network"},
		),
		lastFeeWei: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "l2router_last_fee_wei",
				Help: "Most recent estimated total fee per network, in wei",
			},
			[]string{"network"},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.estimateErrors,
		m.chosenNetwork,
		m.lastFeeWei,
	)

	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg := config.Load()
	reg := registry.Load()

	server := NewServer(cfg, reg)

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewServer creates a server instance over the given registry.
func NewServer(cfg config.Config, reg registry.Registry) *Server {
	if reg.Len() == 0 {
		logrus.Fatal("No networks configured")
	}

	dialer := chain.NewDialer(cfg.DialTimeout)
	prices := oracle.NewCoinGeckoClient(cfg.CoinGeckoURL)
	estimator := estimate.New(reg, dialer, prices)

	var breaker *circuitbreaker.Breaker
	if cfg.EnableCircuitBreaker {
		breaker = circuitbreaker.New(circuitbreaker.Options{
			FailureThreshold: cfg.BreakerFailureCount,
			Cooldown:         cfg.BreakerCooldown,
			OnTrip: func(network string) {
				logrus.Warnf("RPC circuit tripped for %s", network)
			},
		})
		estimator = estimator.WithBreaker(breaker)
	}

	var metricsRegistry *serverMetrics
	if cfg.EnableMetrics {
		metricsRegistry = registerMetrics()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		logrus.Infof("Rate limiting initialized: %v req/s, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// The signing key is parsed once here. When PRIVATE_KEY is unset the
	// service runs estimation-only and the send endpoints report the missing
	// credential; an unparsable key is fatal at startup.
	var dispatcher *dispatch.Dispatcher
	if cfg.PrivateKey != "" {
		var err error
		dispatcher, err = dispatch.NewDispatcher(reg, dialer, cfg.PrivateKey)
		if err != nil {
			logrus.Fatalf("Dispatcher configuration invalid: %v", err)
		}
	} else {
		logrus.Warn("PRIVATE_KEY not set: /send and /route-and-send are disabled")
	}

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"networks":        reg.Len(),
		"circuit_breaker": cfg.EnableCircuitBreaker,
		"metrics":         cfg.EnableMetrics,
		"send_enabled":    dispatcher != nil,
	}).Info("Server initialized")

	return &Server{
		config:     cfg,
		registry:   reg,
		estimator:  estimator,
		dispatcher: dispatcher,
		breaker:    breaker,
		metrics:    metricsRegistry,
		rateLimit:  limiter,
	}
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/networks", s.handleNetworks)
	mux.HandleFunc("/estimate", s.handleEstimate)
	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/route-and-send", s.handleRouteAndSend)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}
