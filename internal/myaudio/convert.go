// convert.go: decoding of inbound audio chunks into PCM sample data.
package myaudio

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/treeguard/woodpecker-go/internal/errors"
)

// ErrDecode is returned when an inbound audio payload cannot be decoded.
// The affected message is dropped and the session continues.
var ErrDecode = errors.NewStd("audio chunk decode failed")

// DecodeChunk decodes a base64 payload of little-endian signed 16-bit PCM
// into raw sample bytes. The byte count must be sample-aligned.
func DecodeChunk(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New(ErrDecode).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Context("reason", "invalid base64").
			Build()
	}
	if len(pcm)%2 != 0 {
		return nil, errors.New(ErrDecode).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Context("reason", "odd byte count").
			Context("bytes", len(pcm)).
			Build()
	}
	return pcm, nil
}

// BytesToFloat32 converts little-endian signed 16-bit PCM bytes to float32
// samples in [-1, 1). The input length must be even.
func BytesToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

// ApplyGain multiplies samples in place by gain, clipping to [-1, 1].
// A gain of 1.0 is a no-op.
func ApplyGain(samples []float32, gain float64) {
	if gain == 1.0 {
		return
	}
	g := float32(gain)
	for i, s := range samples {
		v := s * g
		switch {
		case v > 1.0:
			v = 1.0
		case v < -1.0:
			v = -1.0
		}
		samples[i] = v
	}
}
