package httpcontroller

// Wire messages exchanged over the streaming connection. All frames are
// JSON text messages with a discriminating "type" field.

// inboundMessage covers every client-to-server frame.
type inboundMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"` // base64 int16-LE PCM for type "audio"
	Mode  string `json:"mode,omitempty"`  // reaction mode for type "mode"
}

// resultMessage reports one classified window and the session counters.
type resultMessage struct {
	Type         string  `json:"type"` // "result"
	Confidence   float32 `json:"confidence"`
	Detected     bool    `json:"detected"`
	ChunkCount   uint64  `json:"chunk_count"`
	Detections   uint64  `json:"detections"`
	SoundsPlayed uint64  `json:"sounds_played"`
	LastCategory *string `json:"last_category"` // null until a sound played
}

// playMessage instructs the client to play one catalog asset.
type playMessage struct {
	Type     string `json:"type"` // "play"
	Category string `json:"category"`
	Asset    string `json:"asset"`
	URL      string `json:"url"`
}

// modeMessage confirms a mode change.
type modeMessage struct {
	Type string `json:"type"` // "mode"
	Mode string `json:"mode"`
}

// warningMessage surfaces a recoverable per-message or per-window error.
// The session always continues after a warning.
type warningMessage struct {
	Type    string `json:"type"` // "warning"
	Message string `json:"message"`
}

// pongMessage answers a client keepalive ping.
type pongMessage struct {
	Type string `json:"type"` // "pong"
}
