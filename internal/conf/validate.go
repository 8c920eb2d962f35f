// validate.go: validation of loaded settings
package conf

import (
	"github.com/treeguard/woodpecker-go/internal/errors"
)

// ValidateSettings checks that loaded settings are internally consistent.
// Validation failures are configuration errors and abort startup.
func ValidateSettings(s *Settings) error {
	if s.Audio.SampleRate <= 0 {
		return errors.Newf("audio.samplerate must be positive, got %d", s.Audio.SampleRate).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Audio.BitDepth != 16 {
		return errors.Newf("audio.bitdepth must be 16, got %d", s.Audio.BitDepth).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Audio.WindowSeconds <= 0 {
		return errors.Newf("audio.windowseconds must be positive, got %g", s.Audio.WindowSeconds).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Audio.Overlap < 0 || s.Audio.Overlap >= s.Audio.WindowSeconds {
		return errors.Newf("audio.overlap must be in [0, windowseconds), got %g", s.Audio.Overlap).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Audio.Gain <= 0 {
		return errors.Newf("audio.gain must be positive, got %g", s.Audio.Gain).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.Threshold < 0 || s.Detector.Threshold > 1 {
		return errors.Newf("detector.threshold must be between 0 and 1, got %g", s.Detector.Threshold).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.Cooldown < 0 {
		return errors.Newf("detector.cooldown must not be negative, got %g", s.Detector.Cooldown).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.MelBands <= 0 {
		return errors.Newf("detector.melbands must be positive, got %d", s.Detector.MelBands).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.FFTSize <= 0 || s.Detector.FFTSize&(s.Detector.FFTSize-1) != 0 {
		return errors.Newf("detector.fftsize must be a positive power of two, got %d", s.Detector.FFTSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.HopLength <= 0 {
		return errors.Newf("detector.hoplength must be positive, got %d", s.Detector.HopLength).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Detector.FMax <= 0 || s.Detector.FMax > float64(s.Audio.SampleRate)/2 {
		return errors.Newf("detector.fmax must be in (0, samplerate/2], got %g", s.Detector.FMax).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Sounds.Path == "" {
		return errors.Newf("sounds.path must not be empty").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Realtime.MQTT.Enabled && s.Realtime.MQTT.Broker == "" {
		return errors.Newf("realtime.mqtt.broker must be set when MQTT is enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}
