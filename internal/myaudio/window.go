// window.go: assembly of inbound audio chunks into fixed-length analysis
// windows. Each session owns one assembler; chunks of arbitrary size are
// buffered in a ring buffer and sliced off window by window in FIFO order.
package myaudio

import (
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/treeguard/woodpecker-go/internal/errors"
)

const bytesPerSample = 2 // signed 16-bit PCM

// WindowAssembler buffers raw PCM bytes and yields analysis windows of
// exactly windowSamples samples. With a non-zero overlap the tail of each
// window is carried into the next one.
type WindowAssembler struct {
	rb           *ringbuffer.RingBuffer
	windowBytes  int
	overlapBytes int
	prev         []byte // carried overlap from the previous window
	mu           sync.Mutex
}

// NewWindowAssembler creates an assembler for the given window and overlap
// lengths in samples. Overlap must be smaller than the window.
func NewWindowAssembler(windowSamples, overlapSamples int) (*WindowAssembler, error) {
	if windowSamples <= 0 {
		return nil, errors.Newf("invalid window length: %d samples", windowSamples).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}
	if overlapSamples < 0 || overlapSamples >= windowSamples {
		return nil, errors.Newf("invalid overlap: %d samples for window of %d", overlapSamples, windowSamples).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	windowBytes := windowSamples * bytesPerSample
	// Capacity for two full windows plus a generous inbound chunk. Windows
	// are drained eagerly after every write, so this never fills up in
	// normal operation.
	capacity := windowBytes*2 + 16384

	return &WindowAssembler{
		rb:           ringbuffer.New(capacity),
		windowBytes:  windowBytes,
		overlapBytes: overlapSamples * bytesPerSample,
	}, nil
}

// Write appends raw PCM bytes to the buffer. A full buffer is a resource
// error; the caller drops the chunk and keeps the session alive.
func (wa *WindowAssembler) Write(pcm []byte) error {
	wa.mu.Lock()
	defer wa.mu.Unlock()

	if wa.rb.Free() < len(pcm) {
		return errors.Newf("window buffer full, dropping %d bytes", len(pcm)).
			Component("myaudio").
			Category(errors.CategoryResource).
			Context("free_bytes", wa.rb.Free()).
			Build()
	}
	if _, err := wa.rb.Write(pcm); err != nil {
		return errors.New(err).
			Component("myaudio").
			Category(errors.CategoryResource).
			Build()
	}
	return nil
}

// NextWindow returns the next full analysis window as float32 samples, or
// false when the buffered data is shorter than a window. Trailing partial
// data stays buffered and is never classified.
func (wa *WindowAssembler) NextWindow() ([]float32, bool) {
	wa.mu.Lock()
	defer wa.mu.Unlock()

	need := wa.windowBytes - len(wa.prev)
	if wa.rb.Length() < need {
		return nil, false
	}

	window := make([]byte, wa.windowBytes)
	copy(window, wa.prev)
	if _, err := wa.rb.Read(window[len(wa.prev):]); err != nil {
		return nil, false
	}

	if wa.overlapBytes > 0 {
		if wa.prev == nil {
			wa.prev = make([]byte, wa.overlapBytes)
		}
		copy(wa.prev, window[wa.windowBytes-wa.overlapBytes:])
	}

	return BytesToFloat32(window), true
}

// Buffered returns the number of buffered samples not yet sliced into a
// window, excluding carried overlap.
func (wa *WindowAssembler) Buffered() int {
	wa.mu.Lock()
	defer wa.mu.Unlock()
	return wa.rb.Length() / bytesPerSample
}

// Reset discards all buffered data and any carried overlap.
func (wa *WindowAssembler) Reset() {
	wa.mu.Lock()
	defer wa.mu.Unlock()
	wa.rb.Reset()
	wa.prev = nil
}
