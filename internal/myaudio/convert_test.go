package myaudio

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeguard/woodpecker-go/internal/errors"
)

// pcmBytes builds little-endian 16-bit PCM from sample values.
func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDecodeChunk(t *testing.T) {
	t.Parallel()

	t.Run("valid payload", func(t *testing.T) {
		t.Parallel()
		raw := pcmBytes(0, 16384, -16384, 32767, -32768)
		got, err := DecodeChunk(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("invalid base64", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeChunk("!!not base64!!")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecode))
	})

	t.Run("odd byte count", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeChunk(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecode))
	})

	t.Run("empty payload decodes to empty", func(t *testing.T) {
		t.Parallel()
		got, err := DecodeChunk("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestBytesToFloat32(t *testing.T) {
	t.Parallel()

	samples := BytesToFloat32(pcmBytes(0, 16384, -32768, 32767))
	require.Len(t, samples, 4)
	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-6)
	assert.InDelta(t, -1.0, samples[2], 1e-6)
	assert.InDelta(t, 0.99997, samples[3], 1e-4)
}

func TestApplyGain(t *testing.T) {
	t.Parallel()

	samples := []float32{0.1, -0.1, 0.5, -0.9}
	ApplyGain(samples, 2.0)
	assert.InDelta(t, 0.2, samples[0], 1e-6)
	assert.InDelta(t, -0.2, samples[1], 1e-6)
	assert.InDelta(t, 1.0, samples[2], 1e-6, "must clip at +1")
	assert.InDelta(t, -1.0, samples[3], 1e-6, "must clip at -1")

	unchanged := []float32{0.25}
	ApplyGain(unchanged, 1.0)
	assert.Equal(t, float32(0.25), unchanged[0])
}
