// Package analysis wires the detection service together: catalog,
// classifier, metrics, notification and the web server.
package analysis

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/treeguard/woodpecker-go/internal/classifier"
	"github.com/treeguard/woodpecker-go/internal/conf"
	"github.com/treeguard/woodpecker-go/internal/httpcontroller"
	"github.com/treeguard/woodpecker-go/internal/logging"
	"github.com/treeguard/woodpecker-go/internal/notify"
	"github.com/treeguard/woodpecker-go/internal/observability"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
	"github.com/treeguard/woodpecker-go/internal/stats"
)

// shutdownTimeout bounds how long open sessions may linger once a stop
// signal arrives.
const shutdownTimeout = 10 * time.Second

// RealtimeAnalysis starts the streaming detection service and blocks
// until it fails or a stop signal arrives.
func RealtimeAnalysis(settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	// The file log must be wired before any service logger is created so
	// every component's output reaches the configured file.
	if settings.Main.Log.Enabled {
		closeLog, err := logging.EnableFileLog(settings.Main.Log.Path)
		if err != nil {
			logging.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			defer func() { _ = closeLog() }()
		}
	}

	logger := logging.ForService("analysis")

	catalog, err := soundbank.New(settings.Sounds.Path, settings.Sounds.Seed)
	if err != nil {
		return err
	}

	// A missing or broken model is not fatal at startup. The service runs
	// degraded: status reports not-ready and streaming sessions are
	// refused until a restart with a valid model.
	var predictor classifier.Predictor
	if tf, err := classifier.New(settings); err != nil {
		if logger != nil {
			logger.Error("classifier unavailable, serving degraded",
				"model", settings.Detector.ModelPath, "error", err)
		}
	} else {
		predictor = tf
		defer tf.Delete()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	aggregator := stats.NewAggregator(metrics)

	var notifier *notify.Notifier
	if settings.Realtime.MQTT.Enabled {
		client := notify.NewClient(settings)
		ctx, cancel := context.WithTimeout(context.Background(), notify.DefaultConfig().ConnectTimeout)
		if err := client.Connect(ctx); err != nil && logger != nil {
			// The client reconnects on its own; detections published in
			// the meantime are dropped.
			logger.Warn("mqtt broker not reachable yet",
				"broker", settings.Realtime.MQTT.Broker, "error", err)
		}
		cancel()
		defer client.Disconnect()
		notifier = notify.NewNotifier(client, settings.Realtime.MQTT.Topic)
	}

	server := httpcontroller.New(settings, catalog, predictor, aggregator, metrics, notifier)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		if logger != nil {
			logger.Info("shutting down", "signal", sig.String())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
