// Package main is the entry point for the Token Insight External Adapter,
// a stateless HTTP service that reconciles market data from multiple
// providers and scores tokens into an investment-style recommendation.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/analyze"
	"github.com/yourorg/token-insight-ea/internal/breaker"
	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/export"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/otel"
	"github.com/yourorg/token-insight-ea/internal/security"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Error codes returned to the web form.
const (
	errCodeInvalidToken = "INVALID_TOKEN"
	errCodeRateLimited  = "RATE_LIMITED"
	errCodeUnavailable  = "SERVICE_UNAVAILABLE"
	errCodeInternal     = "INTERNAL_ERROR"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	cfg      config.Config
	analyzer *analyze.Analyzer
	breaker  *breaker.Breaker
	exporter *export.Exporter
	signer   *security.Signer
	limiter  *rate.Limiter
	metrics  *serverMetrics
	server   *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sourcesUsed     prometheus.Gauge
	consensusScore  prometheus.Gauge
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokeninsight_requests_total",
				Help: "Total number of analysis requests processed",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokeninsight_request_duration_seconds",
				Help:    "Analysis request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		sourcesUsed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokeninsight_data_sources_used",
				Help: "Number of providers that contributed data to the last run",
			},
		),
		consensusScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokeninsight_consensus_score",
				Help: "Consensus score of the last completed analysis",
			},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.sourcesUsed,
		m.consensusScore,
	)

	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg := config.Load()
	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	server := NewServer(cfg)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// NewServer wires the analyzer and its supporting services.
func NewServer(cfg config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyze.New(cfg),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		metrics:  registerMetrics(),
	}

	if cfg.EnableBreaker {
		s.breaker = breaker.New(breaker.Thresholds{
			MinSources:          cfg.BreakerMinSources,
			MaxConsecutiveEmpty: 3,
		}, cfg.BreakerResetDelay).WithTripCallback(func(reason string) {
			logrus.Warnf("Analysis serving suspended: %s", reason)
		})
	}

	s.exporter = export.New(export.Config{
		WebhookURL:    cfg.WebhookURL,
		WebhookAPIKey: cfg.WebhookAPIKey,
		BatchSize:     cfg.ExportBatch,
	})

	if cfg.EnableSigning {
		signer, err := security.NewSigner()
		if err != nil {
			logrus.Warnf("Failed to initialize result signer: %v", err)
		} else {
			s.signer = signer
		}
	}

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"circuit_breaker": cfg.EnableBreaker,
		"export":          s.exporter.Enabled(),
		"signing":         s.signer != nil,
		"weights":         cfg.ConsensusWeights,
	}).Info("Server initialized")

	return s
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/analyze", s.handleAnalyzePost).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/analyze/{token}", s.handleAnalyzeGet).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// The analyze endpoints back a public web form; CORS must allow
	// browser calls from anywhere.
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.exporter.Start()

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
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
	s.exporter.Stop()

	logrus.Info("Server stopped")
}

// analyzeRequest is the POST body from the web form.
type analyzeRequest struct {
	Token string `json:"token"`
}

// handleAnalyzePost processes the web form submission.
func (s *Server) handleAnalyzePost(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, errCodeInvalidToken, "Invalid request body")
		return
	}
	s.runAnalysis(w, r, req.Token)
}

// handleAnalyzeGet serves direct link lookups.
func (s *Server) handleAnalyzeGet(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, mux.Vars(r)["token"])
}

// runAnalysis executes one analysis run and writes the result.
func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, identifier string) {
	start := time.Now()

	if !s.limiter.Allow() {
		s.errorResponse(w, http.StatusTooManyRequests, errCodeRateLimited, "Rate limit exceeded")
		return
	}

	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			s.errorResponse(w, http.StatusServiceUnavailable, errCodeUnavailable, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, identifier)
	if err != nil {
		// Invalid input is the only error the analyzer returns; data
		// problems degrade inside the result instead.
		s.errorResponse(w, http.StatusBadRequest, errCodeInvalidToken, err.Error())
		return
	}

	if s.breaker != nil {
		s.breaker.Observe(len(result.Sources.DataSourcesUsed))
	}
	s.exporter.Add(result)

	s.metrics.requestCounter.WithLabelValues("success").Inc()
	s.metrics.requestDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	s.metrics.sourcesUsed.Set(float64(len(result.Sources.DataSourcesUsed)))
	s.metrics.consensusScore.Set(float64(result.ConsensusScore))

	s.writeResult(w, result)
}

// writeResult serializes the analysis result, signed when a signer is
// configured.
func (s *Server) writeResult(w http.ResponseWriter, result model.AnalysisResult) {
	w.Header().Set("Content-Type", "application/json")

	if s.signer != nil {
		envelope, err := s.signer.Sign(result)
		if err != nil {
			logrus.Warnf("Failed to sign result: %v", err)
		} else {
			json.NewEncoder(w).Encode(envelope)
			return
		}
	}
	json.NewEncoder(w).Encode(result)
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "OK",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": "1.0.0",
		"configuration": map[string]interface{}{
			"consensus_weights":   s.cfg.ConsensusWeights,
			"circuit_breaker":     s.cfg.EnableBreaker,
			"max_market_cap_usd":  s.cfg.MaxMarketCapUSD,
			"max_volume_multiple": s.cfg.MaxVolumeMultiple,
		},
	}

	if s.breaker != nil {
		status["circuit_state"] = s.breaker.GetState().String()
	}
	if s.signer != nil {
		status["public_key"] = s.signer.PublicKey()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// errorResponse returns a standardized JSON error to the web form.
func (s *Server) errorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	logrus.Warn(message)
	s.metrics.requestCounter.WithLabelValues("error").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
