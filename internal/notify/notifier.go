package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/treeguard/woodpecker-go/internal/logging"
)

// DetectionMessage is the JSON payload published for triggered detections.
type DetectionMessage struct {
	SessionID  string  `json:"session_id"`
	Timestamp  string  `json:"timestamp"`
	Confidence float32 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
	Asset      string  `json:"asset,omitempty"`
}

// Notifier publishes detection messages on a topic. A nil Notifier is a
// valid no-op, used when MQTT is disabled.
type Notifier struct {
	client Client
	topic  string
	logger *slog.Logger
}

// NewNotifier wraps a connected client.
func NewNotifier(client Client, topic string) *Notifier {
	return &Notifier{
		client: client,
		topic:  topic,
		logger: logging.ForService("notify"),
	}
}

// Detection publishes one triggered detection. Failures are logged and
// swallowed: notification is best-effort and must never disturb the
// session's pipeline.
func (n *Notifier) Detection(ctx context.Context, sessionID string, ts time.Time, confidence float32, category, asset string) {
	if n == nil {
		return
	}

	msg := DetectionMessage{
		SessionID:  sessionID,
		Timestamp:  ts.Format(time.RFC3339),
		Confidence: confidence,
		Category:   category,
		Asset:      asset,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		if n.logger != nil {
			n.logger.Error("failed to marshal detection message", "error", err)
		}
		return
	}

	if err := n.client.Publish(ctx, n.topic, string(payload)); err != nil {
		if n.logger != nil {
			n.logger.Warn("failed to publish detection", "topic", n.topic, "error", err)
		}
	}
}
