// Package features converts fixed-length audio windows into normalized
// mel-spectrogram tensors for the classifier.
package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/treeguard/woodpecker-go/internal/errors"
)

// ErrInvalidWindowLength is returned when the input window does not match
// the configured analysis length. This is a programming or config error,
// never transient.
var ErrInvalidWindowLength = errors.NewStd("invalid analysis window length")

const (
	powerFloor = 1e-10 // amin for log compression
	topDB      = 80.0  // dynamic range kept below the tensor maximum
	normEps    = 1e-8  // epsilon for min-max normalization
)

// Config holds the spectral parameters of the extractor.
type Config struct {
	SampleRate    int     // input sample rate, Hz
	WindowSamples int     // exact analysis window length in samples
	MelBands      int     // number of mel bands
	FFTSize       int     // STFT window size, power of two
	HopLength     int     // STFT hop length in samples
	FMax          float64 // upper bound of the mel filterbank, Hz
}

// Tensor is a normalized mel spectrogram with fixed shape
// MelBands x Frames x 1. Data is band-major: Data[band*Frames+frame].
// Values are min-max normalized to [0, 1], independent of input loudness.
type Tensor struct {
	Data     []float32
	MelBands int
	Frames   int
}

// Model returns the tensor flattened for the classifier input, NHWC with
// batch 1: (1, MelBands, Frames, 1).
func (t *Tensor) Model() []float32 {
	return t.Data
}

// melFilter is one triangular filter stored sparsely: weights apply to
// FFT bins [start, start+len(weights)).
type melFilter struct {
	start   int
	weights []float64
}

// Extractor computes mel-spectrogram tensors. It is deterministic and
// safe for concurrent use only when each session owns its own instance;
// internal scratch buffers are reused between calls.
type Extractor struct {
	cfg     Config
	frames  int
	fft     *fourier.FFT
	hann    []float64
	filters []melFilter

	// scratch buffers, reused per Extract call
	padded []float64
	frame  []float64
	coeffs []complex128
	power  []float64
	mel    []float64
}

// New creates an extractor for the given configuration.
func New(cfg Config) (*Extractor, error) {
	if cfg.WindowSamples <= 0 || cfg.MelBands <= 0 || cfg.FFTSize <= 0 || cfg.HopLength <= 0 {
		return nil, errors.Newf("invalid extractor config: window=%d mels=%d fft=%d hop=%d",
			cfg.WindowSamples, cfg.MelBands, cfg.FFTSize, cfg.HopLength).
			Component("features").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.FMax <= 0 || cfg.FMax > float64(cfg.SampleRate)/2 {
		return nil, errors.Newf("invalid fmax %g for sample rate %d", cfg.FMax, cfg.SampleRate).
			Component("features").
			Category(errors.CategoryValidation).
			Build()
	}

	bins := cfg.FFTSize/2 + 1
	e := &Extractor{
		cfg:     cfg,
		frames:  1 + cfg.WindowSamples/cfg.HopLength,
		fft:     fourier.NewFFT(cfg.FFTSize),
		hann:    hannWindow(cfg.FFTSize),
		filters: melFilterbank(cfg.MelBands, bins, cfg.FFTSize, cfg.SampleRate, cfg.FMax),
		padded:  make([]float64, cfg.WindowSamples+cfg.FFTSize),
		frame:   make([]float64, cfg.FFTSize),
		coeffs:  make([]complex128, bins),
		power:   make([]float64, bins),
		mel:     make([]float64, cfg.MelBands),
	}
	return e, nil
}

// Frames returns the number of time frames in every produced tensor.
func (e *Extractor) Frames() int {
	return e.frames
}

// Extract converts one analysis window into a normalized mel tensor.
// The window length must exactly equal the configured analysis length.
func (e *Extractor) Extract(window []float32) (*Tensor, error) {
	if len(window) != e.cfg.WindowSamples {
		return nil, errors.New(ErrInvalidWindowLength).
			Component("features").
			Category(errors.CategoryValidation).
			Context("got_samples", len(window)).
			Context("want_samples", e.cfg.WindowSamples).
			Build()
	}

	// Center the first frame on sample zero by zero-padding half an FFT
	// window on each side, mirroring the framing the model was trained on.
	pad := e.cfg.FFTSize / 2
	for i := range e.padded {
		e.padded[i] = 0
	}
	for i, s := range window {
		e.padded[pad+i] = float64(s)
	}

	out := make([]float64, e.cfg.MelBands*e.frames)
	for f := 0; f < e.frames; f++ {
		start := f * e.cfg.HopLength
		for i := 0; i < e.cfg.FFTSize; i++ {
			e.frame[i] = e.padded[start+i] * e.hann[i]
		}
		e.fft.Coefficients(e.coeffs, e.frame)
		for i, c := range e.coeffs {
			re, im := real(c), imag(c)
			e.power[i] = re*re + im*im
		}
		for m, filt := range e.filters {
			sum := 0.0
			for i, w := range filt.weights {
				sum += w * e.power[filt.start+i]
			}
			e.mel[m] = sum
		}
		for m, v := range e.mel {
			out[m*e.frames+f] = v
		}
	}

	logCompress(out)
	normalize(out)

	data := make([]float32, len(out))
	for i, v := range out {
		data[i] = float32(v)
	}
	return &Tensor{Data: data, MelBands: e.cfg.MelBands, Frames: e.frames}, nil
}

// logCompress converts power values to decibels relative to the tensor
// maximum and floors the dynamic range at -topDB.
func logCompress(s []float64) {
	ref := powerFloor
	for _, v := range s {
		if v > ref {
			ref = v
		}
	}
	refDB := 10 * math.Log10(ref)
	for i, v := range s {
		if v < powerFloor {
			v = powerFloor
		}
		db := 10*math.Log10(v) - refDB
		if db < -topDB {
			db = -topDB
		}
		s[i] = db
	}
}

// normalize min-max scales values to [0, 1] so absolute loudness does not
// dominate the tensor.
func normalize(s []float64) {
	minV, maxV := s[0], s[0]
	for _, v := range s {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV + normEps
	for i, v := range s {
		s[i] = (v - minV) / span
	}
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hzToMel converts frequency to mel scale (HTK formula).
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters mapping linear FFT bins onto
// melBands perceptual bands between 0 Hz and fmax.
func melFilterbank(melBands, bins, fftSize, sampleRate int, fmax float64) []melFilter {
	melMax := hzToMel(fmax)
	points := make([]float64, melBands+2)
	for i := range points {
		points[i] = melToHz(melMax * float64(i) / float64(melBands+1))
	}

	binHz := float64(sampleRate) / float64(fftSize)
	filters := make([]melFilter, melBands)
	for m := 0; m < melBands; m++ {
		lo, center, hi := points[m], points[m+1], points[m+2]
		var weights []float64
		start := -1
		for k := 0; k < bins; k++ {
			f := float64(k) * binHz
			var w float64
			switch {
			case f <= lo || f >= hi:
				continue
			case f < center:
				w = (f - lo) / (center - lo)
			default:
				w = (hi - f) / (hi - center)
			}
			if start < 0 {
				start = k
			}
			// Fill any gap between sparse hits to keep weights contiguous.
			for len(weights) < k-start {
				weights = append(weights, 0)
			}
			weights = append(weights, w)
		}
		if start < 0 {
			// Degenerate narrow filter with no bin inside; give it the
			// nearest bin so every band stays defined.
			start = int(center / binHz)
			if start >= bins {
				start = bins - 1
			}
			weights = []float64{1}
		}
		filters[m] = melFilter{start: start, weights: weights}
	}
	return filters
}
