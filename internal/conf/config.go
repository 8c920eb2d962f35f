// config.go: settings struct and functions to load application settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// LogConfig contains settings for log files.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
}

// AudioSettings contains settings for the inbound audio stream.
type AudioSettings struct {
	SampleRate    int     // sample rate of inbound PCM, Hz
	BitDepth      int     // sample width of inbound PCM, bits
	WindowSeconds float64 // analysis window length in seconds
	Overlap       float64 // window overlap in seconds
	Gain          float64 // gain multiplier applied before analysis
}

// DetectorSettings contains settings for feature extraction and the
// detection state machine.
type DetectorSettings struct {
	ModelPath string  // path to the TFLite classifier artifact
	Threshold float64 // confidence threshold for detections, 0-1
	Cooldown  float64 // minimum seconds between triggered reactions
	MelBands  int     // number of mel bands in the feature tensor
	FFTSize   int     // STFT window size in samples
	HopLength int     // STFT hop length in samples
	FMax      float64 // upper frequency bound of the mel filterbank, Hz
	Threads   int     // TFLite interpreter threads, 0 = runtime default
}

// SoundsSettings contains settings for the reaction sound catalog.
type SoundsSettings struct {
	Path string // root directory of reaction sound assets
	Seed uint64 // random seed for asset selection, 0 = time-based
}

// WebServerSettings contains settings for the web server.
type WebServerSettings struct {
	Debug bool   // true to enable debug logging
	Port  string // port for the web server
}

// MQTTSettings contains settings for optional detection publishing.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // MQTT broker URL
	Topic    string // MQTT topic for detection events
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to retain messages at the broker
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug behavior

	Main struct {
		Name string    // name of the node
		Log  LogConfig // main log settings
	}

	Audio    AudioSettings
	Detector DetectorSettings
	Sounds   SoundsSettings

	WebServer WebServerSettings

	Realtime struct {
		MQTT MQTTSettings
	}
}

// WindowSamples returns the analysis window length in samples.
func (s *Settings) WindowSamples() int {
	return int(float64(s.Audio.SampleRate) * s.Audio.WindowSeconds)
}

// OverlapSamples returns the window overlap in samples.
func (s *Settings) OverlapSamples() int {
	return int(float64(s.Audio.SampleRate) * s.Audio.Overlap)
}

// CooldownDuration returns the detection cooldown as a time.Duration.
func (s *Settings) CooldownDuration() time.Duration {
	return time.Duration(s.Detector.Cooldown * float64(time.Second))
}

// Load reads the configuration file and environment variables into a
// validated Settings struct.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("WOODPECKER")
	viper.AutomaticEnv()

	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults plus flags apply.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the list of directories searched for
// config.yaml: the working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Home directory may be unavailable in containers; the working
		// directory alone is still a valid search path.
		return paths, nil
	}
	paths = append(paths, filepath.Join(homeDir, ".config", "woodpecker-go"))
	return paths, nil
}
