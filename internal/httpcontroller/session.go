package httpcontroller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/treeguard/woodpecker-go/internal/detection"
	"github.com/treeguard/woodpecker-go/internal/features"
	"github.com/treeguard/woodpecker-go/internal/myaudio"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
	"github.com/treeguard/woodpecker-go/internal/stats"
)

// session owns one streaming connection's state. The connection's reader
// goroutine is the only goroutine touching it, which gives strict
// in-order processing of chunks and windows for free.
type session struct {
	id        string
	conn      *websocket.Conn
	server    *Server
	assembler *myaudio.WindowAssembler
	extractor *features.Extractor
	machine   *detection.StateMachine
	counters  stats.Session
	mode      soundbank.Mode
	logger    *slog.Logger
}

// handleWebSocket upgrades the connection and runs the session loop until
// the client disconnects. All session state dies with the connection; a
// reconnect starts from an empty buffer and zero counters.
func (s *Server) handleWebSocket(c echo.Context) error {
	if !s.Ready() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "detector not ready")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("websocket upgrade failed", "error", err)
		}
		return err
	}

	assembler, err := myaudio.NewWindowAssembler(s.Settings.WindowSamples(), s.Settings.OverlapSamples())
	if err != nil {
		conn.Close()
		return err
	}
	extractor, err := features.New(s.extractorConfig())
	if err != nil {
		conn.Close()
		return err
	}

	sess := &session{
		id:        uuid.New().String(),
		conn:      conn,
		server:    s,
		assembler: assembler,
		extractor: extractor,
		machine: detection.NewStateMachine(
			float32(s.Settings.Detector.Threshold),
			s.Settings.CooldownDuration(),
			s.Clock,
		),
		mode:   soundbank.DefaultMode,
		logger: s.logger,
	}

	s.Aggregator.SessionStarted()
	if sess.logger != nil {
		sess.logger.Info("session connected", "session_id", sess.id, "remote", c.RealIP())
	}

	defer func() {
		s.Aggregator.SessionEnded()
		sess.assembler.Reset()
		conn.Close()
		if sess.logger != nil {
			sess.logger.Info("session ended",
				"session_id", sess.id,
				"chunks", sess.counters.Chunks,
				"detections", sess.counters.Detections,
				"sounds_played", sess.counters.SoundsPlayed)
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	sess.run()
	return nil
}

// run is the session loop: read, dispatch, repeat until disconnect.
func (sess *session) run() {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if sess.logger != nil {
					sess.logger.Warn("session read error", "session_id", sess.id, "error", err)
				}
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.warn("malformed message")
			continue
		}

		switch msg.Type {
		case "audio":
			sess.handleAudio(msg.Audio)
		case "mode":
			sess.handleMode(msg.Mode)
		case "test":
			sess.handleTest()
		case "ping":
			sess.send(pongMessage{Type: "pong"})
		default:
			sess.warn("unknown message type: " + msg.Type)
		}
	}
}

// handleAudio consumes one chunk and classifies every full window it
// completes. Decode failures drop the chunk; the session continues.
func (sess *session) handleAudio(payload string) {
	pcm, err := myaudio.DecodeChunk(payload)
	if err != nil {
		sess.server.Aggregator.AddDecodeError()
		sess.warn("audio chunk dropped: decode failed")
		return
	}
	if err := sess.assembler.Write(pcm); err != nil {
		sess.warn("audio chunk dropped: buffer full")
		return
	}

	sess.counters.Chunks++
	sess.server.Aggregator.AddChunk()

	for {
		window, ok := sess.assembler.NextWindow()
		if !ok {
			break
		}
		sess.classifyWindow(window)
	}
}

// classifyWindow runs the pipeline for one analysis window and reports
// the result to the client.
func (sess *session) classifyWindow(window []float32) {
	srv := sess.server

	myaudio.ApplyGain(window, srv.Settings.Audio.Gain)

	var confidence float32
	tensor, err := sess.extractor.Extract(window)
	if err != nil {
		// Window length is enforced by the assembler, so this is a config
		// error; report the window as silent and keep the session alive.
		srv.Aggregator.AddInferenceError()
		sess.warn("feature extraction failed, window dropped")
	} else {
		start := time.Now()
		confidence, err = srv.Predictor.Predict(tensor.Model())
		if srv.Metrics != nil {
			srv.Metrics.InferenceDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			confidence = 0
			srv.Aggregator.AddInferenceError()
			sess.warn("classifier failed, window reported as silent")
		}
	}

	ev := sess.machine.Observe(sess.id, confidence)
	srv.Aggregator.AddWindow()

	if ev.Detected(sess.machine.Threshold()) {
		sess.counters.Detections++
		srv.Aggregator.AddDetection()
	}

	if ev.Triggered {
		sess.react(ev)
	}

	sess.send(sess.result(ev))
}

// react dispatches a reaction sound for a triggered detection. An empty
// category pool skips the reaction; the detection stays recorded.
func (sess *session) react(ev detection.Event) {
	srv := sess.server

	if sess.mode == soundbank.ModeSilent {
		srv.Notifier.Detection(context.Background(), sess.id, ev.Timestamp, ev.Confidence, "", "")
		return
	}

	instr, err := srv.Dispatcher.React(sess.mode)
	if err != nil {
		sess.warn("no reaction sound available")
		srv.Notifier.Detection(context.Background(), sess.id, ev.Timestamp, ev.Confidence, "", "")
		return
	}

	sess.counters.SoundsPlayed++
	sess.counters.LastCategory = instr.Category
	srv.Aggregator.AddSoundPlayed(instr.Category)
	srv.Notifier.Detection(context.Background(), sess.id, ev.Timestamp, ev.Confidence, instr.Category, instr.Asset)

	sess.send(playMessage{
		Type:     "play",
		Category: instr.Category,
		Asset:    instr.Asset,
		URL:      instr.URL,
	})
}

// handleMode switches the session's reaction mode. Invalid modes leave
// the current mode in place.
func (sess *session) handleMode(raw string) {
	mode, err := soundbank.ParseMode(raw)
	if err != nil {
		sess.warn("unknown reaction mode: " + raw)
		return
	}
	sess.mode = mode
	sess.send(modeMessage{Type: "mode", Mode: string(mode)})
}

// handleTest serves an explicit test-sound request, bypassing the state
// machine and cooldown.
func (sess *session) handleTest() {
	instr, err := sess.server.Dispatcher.TestSound()
	if err != nil {
		sess.warn("no test sound available")
		return
	}
	sess.send(playMessage{
		Type:     "play",
		Category: instr.Category,
		Asset:    instr.Asset,
		URL:      instr.URL,
	})
}

func (sess *session) result(ev detection.Event) resultMessage {
	msg := resultMessage{
		Type:         "result",
		Confidence:   ev.Confidence,
		Detected:     ev.Triggered,
		ChunkCount:   sess.counters.Chunks,
		Detections:   sess.counters.Detections,
		SoundsPlayed: sess.counters.SoundsPlayed,
	}
	if sess.counters.LastCategory != "" {
		msg.LastCategory = &sess.counters.LastCategory
	}
	return msg
}

func (sess *session) warn(message string) {
	sess.send(warningMessage{Type: "warning", Message: message})
}

// send writes one JSON frame. Write errors end the session on the next
// read, so they are only logged here.
func (sess *session) send(v any) {
	if err := sess.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := sess.conn.WriteJSON(v); err != nil {
		if sess.logger != nil {
			sess.logger.Debug("session write failed", "session_id", sess.id, "error", err)
		}
	}
}
