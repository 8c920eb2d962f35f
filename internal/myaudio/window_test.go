package myaudio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampPCM builds n sequential 16-bit samples so window contents can be
// checked positionally.
func rampPCM(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(i%30000)))
	}
	return out
}

func TestNewWindowAssemblerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWindowAssembler(0, 0)
	require.Error(t, err)

	_, err = NewWindowAssembler(100, 100)
	require.Error(t, err, "overlap equal to window must be rejected")

	_, err = NewWindowAssembler(100, -1)
	require.Error(t, err)

	wa, err := NewWindowAssembler(100, 50)
	require.NoError(t, err)
	require.NotNil(t, wa)
}

func TestWindowAssemblyFromSplitChunks(t *testing.T) {
	t.Parallel()

	const windowSamples = 1000
	audio := rampPCM(windowSamples)

	// One big chunk.
	whole, err := NewWindowAssembler(windowSamples, 0)
	require.NoError(t, err)
	require.NoError(t, whole.Write(audio))
	wantWindow, ok := whole.NextWindow()
	require.True(t, ok)
	require.Len(t, wantWindow, windowSamples)

	// Same audio as arbitrary small chunks.
	split, err := NewWindowAssembler(windowSamples, 0)
	require.NoError(t, err)
	sizes := []int{2, 6, 14, 30, 126, 254, 510, 1024}
	offset := 0
	i := 0
	for offset < len(audio) {
		size := sizes[i%len(sizes)]
		i++
		if offset+size > len(audio) {
			size = len(audio) - offset
		}
		require.NoError(t, split.Write(audio[offset:offset+size]))
		offset += size
	}

	gotWindow, ok := split.NextWindow()
	require.True(t, ok, "chunks summing to one window must produce one window")
	assert.Equal(t, wantWindow, gotWindow, "windows must be sample-identical regardless of chunking")

	_, ok = split.NextWindow()
	assert.False(t, ok, "exactly one window expected")
}

func TestPartialDataStaysBuffered(t *testing.T) {
	t.Parallel()

	wa, err := NewWindowAssembler(1000, 0)
	require.NoError(t, err)

	require.NoError(t, wa.Write(rampPCM(999)))
	_, ok := wa.NextWindow()
	assert.False(t, ok, "999 of 1000 samples must not classify")
	assert.Equal(t, 999, wa.Buffered())

	require.NoError(t, wa.Write(rampPCM(1)))
	_, ok = wa.NextWindow()
	assert.True(t, ok)
	assert.Equal(t, 0, wa.Buffered())
}

func TestMultipleWindowsFIFO(t *testing.T) {
	t.Parallel()

	const windowSamples = 100
	wa, err := NewWindowAssembler(windowSamples, 0)
	require.NoError(t, err)

	require.NoError(t, wa.Write(rampPCM(windowSamples*3)))

	var first float32
	for i := 0; i < 3; i++ {
		w, ok := wa.NextWindow()
		require.True(t, ok, "window %d", i)
		if i == 0 {
			first = w[0]
		} else {
			assert.Greater(t, w[0], first, "windows must come out in arrival order")
		}
	}
	_, ok := wa.NextWindow()
	assert.False(t, ok)
}

func TestOverlapCarriesWindowTail(t *testing.T) {
	t.Parallel()

	const windowSamples = 100
	const overlapSamples = 25
	wa, err := NewWindowAssembler(windowSamples, overlapSamples)
	require.NoError(t, err)

	require.NoError(t, wa.Write(rampPCM(windowSamples*2)))

	w1, ok := wa.NextWindow()
	require.True(t, ok)
	w2, ok := wa.NextWindow()
	require.True(t, ok)

	assert.Equal(t, w1[windowSamples-overlapSamples:], w2[:overlapSamples],
		"second window must start with the first window's tail")
}

func TestResetDiscardsBuffer(t *testing.T) {
	t.Parallel()

	wa, err := NewWindowAssembler(100, 10)
	require.NoError(t, err)
	require.NoError(t, wa.Write(rampPCM(150)))
	_, ok := wa.NextWindow()
	require.True(t, ok)

	wa.Reset()
	assert.Equal(t, 0, wa.Buffered())
	_, ok = wa.NextWindow()
	assert.False(t, ok, "no window after reset")
}

func TestWriteFullBuffer(t *testing.T) {
	t.Parallel()

	wa, err := NewWindowAssembler(100, 0)
	require.NoError(t, err)

	// Capacity is two windows plus slack; writing far beyond that without
	// draining must fail instead of blocking.
	big := rampPCM(100*2 + 16384/2)
	require.NoError(t, wa.Write(big))
	err = wa.Write(rampPCM(100))
	require.Error(t, err)
}
