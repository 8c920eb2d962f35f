// Package httpcontroller exposes the streaming session gateway and the
// read-only catalog/status API over an Echo server.
package httpcontroller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/treeguard/woodpecker-go/internal/classifier"
	"github.com/treeguard/woodpecker-go/internal/conf"
	"github.com/treeguard/woodpecker-go/internal/detection"
	"github.com/treeguard/woodpecker-go/internal/dispatch"
	"github.com/treeguard/woodpecker-go/internal/features"
	"github.com/treeguard/woodpecker-go/internal/logging"
	"github.com/treeguard/woodpecker-go/internal/notify"
	"github.com/treeguard/woodpecker-go/internal/observability"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
	"github.com/treeguard/woodpecker-go/internal/stats"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Maximum inbound message size; one second of base64 PCM plus JSON
	// framing stays well under this.
	maxMessageSize = 1 << 20

	soundsRoutePrefix = "/api/v1/sounds"
)

// Server wires the session pipeline to HTTP routes. Predictor may be nil
// when the model failed to load; the server then serves status as
// not-ready and refuses streaming sessions instead of emitting
// zero-confidence results.
type Server struct {
	Echo       *echo.Echo
	Settings   *conf.Settings
	Catalog    *soundbank.Catalog
	Predictor  classifier.Predictor
	Dispatcher *dispatch.Dispatcher
	Aggregator *stats.Aggregator
	Metrics    *observability.Metrics
	Notifier   *notify.Notifier

	// Clock is injected into each session's state machine; nil means the
	// system clock.
	Clock detection.Clock

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates the server and registers all routes.
func New(settings *conf.Settings, catalog *soundbank.Catalog, predictor classifier.Predictor,
	aggregator *stats.Aggregator, metrics *observability.Metrics, notifier *notify.Notifier) *Server {

	s := &Server{
		Echo:       echo.New(),
		Settings:   settings,
		Catalog:    catalog,
		Predictor:  predictor,
		Dispatcher: dispatch.New(catalog, soundsRoutePrefix),
		Aggregator: aggregator,
		Metrics:    metrics,
		Notifier:   notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin: func(r *http.Request) bool {
				// The capture page and the stream share an origin in
				// deployment; cross-origin capture clients are expected.
				return true
			},
		},
		logger: logging.ForService("httpcontroller"),
	}

	s.Echo.HideBanner = true
	s.Echo.Use(middleware.Recover())
	if settings.WebServer.Debug {
		s.Echo.Use(middleware.Logger())
	}

	s.initRoutes()
	return s
}

// Ready reports whether the engine can accept streaming sessions.
func (s *Server) Ready() bool {
	return s.Predictor != nil && s.Catalog != nil
}

// extractorConfig derives the feature extractor configuration from the
// loaded settings.
func (s *Server) extractorConfig() features.Config {
	return features.Config{
		SampleRate:    s.Settings.Audio.SampleRate,
		WindowSamples: s.Settings.WindowSamples(),
		MelBands:      s.Settings.Detector.MelBands,
		FFTSize:       s.Settings.Detector.FFTSize,
		HopLength:     s.Settings.Detector.HopLength,
		FMax:          s.Settings.Detector.FMax,
	}
}

func (s *Server) initRoutes() {
	s.Echo.GET("/ws", s.handleWebSocket)

	api := s.Echo.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.GET("/sounds", s.handleSoundsListing)
	api.GET("/sounds/:category/:filename", s.handleSoundAsset)

	if s.Metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	addr := ":" + s.Settings.WebServer.Port
	if s.logger != nil {
		s.logger.Info("web server starting", "addr", addr, "ready", s.Ready())
	}
	return s.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
