package httpcontroller

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeguard/woodpecker-go/internal/classifier"
)

// stepClock is a controllable detection clock shared between the test and
// the session goroutine.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// dialSession serves the gateway over a real listener and opens one
// streaming connection to it.
func dialSession(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(s.Echo)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// pcmChunk encodes n constant int16 samples as the base64 wire payload.
func pcmChunk(n int, value int16) string {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func sendFrame(t *testing.T, conn *websocket.Conn, msg inboundMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func sendWindow(t *testing.T, conn *websocket.Conn, samples int) {
	t.Helper()
	sendFrame(t, conn, inboundMessage{Type: "audio", Audio: pcmChunk(samples, 1000)})
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func readFrameOfType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	m := readFrame(t, conn)
	require.Equal(t, want, m["type"], "frame: %v", m)
	return m
}

func TestSessionEmitsResultPerCompletedWindow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.2}})
	conn := dialSession(t, s)
	window := s.Settings.WindowSamples()

	// A half window completes nothing; no frame may arrive.
	sendFrame(t, conn, inboundMessage{Type: "audio", Audio: pcmChunk(window/2, 1000)})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "no result before a window completes")

	// A read timeout permanently fails a gorilla connection, so the rest
	// of the test runs on a fresh session.
	conn = dialSession(t, s)
	sendWindow(t, conn, window)

	m := readFrameOfType(t, conn, "result")
	assert.InDelta(t, 0.2, m["confidence"].(float64), 1e-6)
	assert.Equal(t, false, m["detected"])
	assert.EqualValues(t, 1, m["chunk_count"])
	assert.EqualValues(t, 0, m["detections"])
	assert.EqualValues(t, 0, m["sounds_played"])
	assert.Nil(t, m["last_category"])
}

func TestSessionChunksSmallerThanWindowAccumulate(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.3}})
	conn := dialSession(t, s)
	window := s.Settings.WindowSamples()

	sendFrame(t, conn, inboundMessage{Type: "audio", Audio: pcmChunk(window/2, 500)})
	sendFrame(t, conn, inboundMessage{Type: "audio", Audio: pcmChunk(window/2, 500)})

	m := readFrameOfType(t, conn, "result")
	assert.EqualValues(t, 2, m["chunk_count"])
}

func TestSessionTriggerPlaysPredatorSound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.9}})
	conn := dialSession(t, s)
	sendWindow(t, conn, s.Settings.WindowSamples())

	play := readFrameOfType(t, conn, "play")
	assert.Equal(t, "predator_hawk", play["category"])
	assert.Equal(t, "hawk-cry.mp3", play["asset"])
	assert.Equal(t, "/api/v1/sounds/predator_hawk/hawk-cry.mp3", play["url"])

	result := readFrameOfType(t, conn, "result")
	assert.Equal(t, true, result["detected"])
	assert.EqualValues(t, 1, result["detections"])
	assert.EqualValues(t, 1, result["sounds_played"])
	assert.Equal(t, "predator_hawk", result["last_category"])
}

func TestSessionCooldownScenario(t *testing.T) {
	t.Parallel()

	// Confidences [0.2 0.9 0.95 0.3 0.96] on a ~1 s window cadence with a
	// 3 s cooldown: one sound plays, three windows count as detections.
	clock := newStepClock()
	s := newTestServer(t, &classifier.Mock{Script: []float32{0.2, 0.9, 0.95, 0.3, 0.96}})
	s.Clock = clock

	conn := dialSession(t, s)
	window := s.Settings.WindowSamples()

	type step struct {
		play       bool
		detected   bool
		detections uint64
		sounds     uint64
	}
	steps := []step{
		{play: false, detected: false, detections: 0, sounds: 0},
		{play: true, detected: true, detections: 1, sounds: 1},
		{play: false, detected: false, detections: 2, sounds: 1},
		{play: false, detected: false, detections: 2, sounds: 1},
		{play: false, detected: false, detections: 3, sounds: 1},
	}

	for i, want := range steps {
		sendWindow(t, conn, window)
		if want.play {
			readFrameOfType(t, conn, "play")
		}
		m := readFrameOfType(t, conn, "result")
		assert.Equal(t, want.detected, m["detected"], "window %d", i+1)
		assert.EqualValues(t, want.detections, m["detections"], "window %d", i+1)
		assert.EqualValues(t, want.sounds, m["sounds_played"], "window %d", i+1)
		clock.Advance(995 * time.Millisecond)
	}
}

func TestSessionSilentModeSuppressesPlayback(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.9}})
	conn := dialSession(t, s)

	sendFrame(t, conn, inboundMessage{Type: "mode", Mode: "silent"})
	ack := readFrameOfType(t, conn, "mode")
	assert.Equal(t, "silent", ack["mode"])

	sendWindow(t, conn, s.Settings.WindowSamples())
	m := readFrameOfType(t, conn, "result")
	assert.Equal(t, true, m["detected"])
	assert.EqualValues(t, 1, m["detections"])
	assert.EqualValues(t, 0, m["sounds_played"], "silent mode plays nothing")
}

func TestSessionModeSwitching(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.9}})
	conn := dialSession(t, s)

	sendFrame(t, conn, inboundMessage{Type: "mode", Mode: "chickens"})
	warn := readFrameOfType(t, conn, "warning")
	assert.Contains(t, warn["message"], "chickens")

	sendFrame(t, conn, inboundMessage{Type: "mode", Mode: "woodpeckers"})
	ack := readFrameOfType(t, conn, "mode")
	assert.Equal(t, "woodpeckers", ack["mode"])

	sendWindow(t, conn, s.Settings.WindowSamples())
	play := readFrameOfType(t, conn, "play")
	assert.Equal(t, "woodpecker_drumming", play["category"])
	readFrameOfType(t, conn, "result")
}

func TestSessionTestSoundBypassesCooldown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.9}})
	conn := dialSession(t, s)

	// Trigger once; the state machine is now in cooldown.
	sendWindow(t, conn, s.Settings.WindowSamples())
	readFrameOfType(t, conn, "play")
	readFrameOfType(t, conn, "result")

	sendFrame(t, conn, inboundMessage{Type: "test"})
	play := readFrameOfType(t, conn, "play")
	assert.Contains(t, []any{"predator_hawk", "woodpecker_drumming"}, play["category"])

	// Test sounds are an operator check, not a reaction: the counters
	// only move for triggered detections.
	sendWindow(t, conn, s.Settings.WindowSamples())
	m := readFrameOfType(t, conn, "result")
	assert.EqualValues(t, 2, m["detections"])
	assert.EqualValues(t, 1, m["sounds_played"], "test sound must not count as played")
}

func TestSessionDecodeErrorWarnsAndContinues(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.1}})
	conn := dialSession(t, s)

	sendFrame(t, conn, inboundMessage{Type: "audio", Audio: "!!!not-base64!!!"})
	warn := readFrameOfType(t, conn, "warning")
	assert.Contains(t, warn["message"], "decode failed")

	sendWindow(t, conn, s.Settings.WindowSamples())
	m := readFrameOfType(t, conn, "result")
	assert.EqualValues(t, 1, m["chunk_count"], "dropped chunk must not count")
}

func TestSessionClassifierFailureReportsSilence(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Err: errors.New("interpreter invoke failed")})
	conn := dialSession(t, s)

	sendWindow(t, conn, s.Settings.WindowSamples())
	warn := readFrameOfType(t, conn, "warning")
	assert.Contains(t, warn["message"], "classifier")

	m := readFrameOfType(t, conn, "result")
	assert.InDelta(t, 0, m["confidence"].(float64), 1e-9)
	assert.Equal(t, false, m["detected"])
	assert.EqualValues(t, 0, m["detections"])

	// The failure is per window; the session keeps serving.
	sendFrame(t, conn, inboundMessage{Type: "ping"})
	readFrameOfType(t, conn, "pong")
}

func TestSessionUnknownTypeWarns(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{})
	conn := dialSession(t, s)

	sendFrame(t, conn, inboundMessage{Type: "frobnicate"})
	warn := readFrameOfType(t, conn, "warning")
	assert.Contains(t, warn["message"], "frobnicate")
}

func TestSessionPing(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{})
	conn := dialSession(t, s)

	sendFrame(t, conn, inboundMessage{Type: "ping"})
	readFrameOfType(t, conn, "pong")
}

func TestReconnectStartsFresh(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &classifier.Mock{Script: []float32{0.9, 0.9}})
	window := s.Settings.WindowSamples()

	conn := dialSession(t, s)
	sendWindow(t, conn, window)
	readFrameOfType(t, conn, "play")
	first := readFrameOfType(t, conn, "result")
	assert.EqualValues(t, 1, first["sounds_played"])
	conn.Close()

	// A new connection gets fresh counters and a fresh cooldown.
	conn = dialSession(t, s)
	sendWindow(t, conn, window)
	readFrameOfType(t, conn, "play")
	second := readFrameOfType(t, conn, "result")
	assert.EqualValues(t, 1, second["chunk_count"])
	assert.EqualValues(t, 1, second["detections"])
	assert.EqualValues(t, 1, second["sounds_played"])
}
