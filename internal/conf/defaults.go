// defaults.go: default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Woodpecker-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/woodpecker.log")

	viper.SetDefault("audio.samplerate", 22050)
	viper.SetDefault("audio.bitdepth", 16)
	viper.SetDefault("audio.windowseconds", 1.0)
	viper.SetDefault("audio.overlap", 0.0)
	viper.SetDefault("audio.gain", 1.0)

	viper.SetDefault("detector.modelpath", "model/woodpecker.tflite")
	viper.SetDefault("detector.threshold", 0.75)
	viper.SetDefault("detector.cooldown", 3.0)
	viper.SetDefault("detector.melbands", 64)
	viper.SetDefault("detector.fftsize", 2048)
	viper.SetDefault("detector.hoplength", 512)
	viper.SetDefault("detector.fmax", 8000)
	viper.SetDefault("detector.threads", 0)

	viper.SetDefault("sounds.path", "sounds")
	viper.SetDefault("sounds.seed", 0)

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "woodpecker/detections")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)
}
