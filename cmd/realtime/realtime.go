package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treeguard/woodpecker-go/internal/analysis"
	"github.com/treeguard/woodpecker-go/internal/conf"
)

// Command creates the realtime service command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the streaming detection service",
		Long:  "Accept live audio over websocket, classify it for woodpecker activity and dispatch reaction sounds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the web server")
	cmd.Flags().Float64Var(&settings.Detector.Threshold, "threshold", viper.GetFloat64("detector.threshold"), "Confidence threshold for detections (0-1)")
	cmd.Flags().Float64Var(&settings.Detector.Cooldown, "cooldown", viper.GetFloat64("detector.cooldown"), "Minimum seconds between triggered reactions")
	cmd.Flags().Float64Var(&settings.Audio.Gain, "gain", viper.GetFloat64("audio.gain"), "Gain multiplier applied before analysis")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
