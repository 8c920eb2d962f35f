package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treeguard/woodpecker-go/cmd/realtime"
	"github.com/treeguard/woodpecker-go/cmd/sounds"
	"github.com/treeguard/woodpecker-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "woodpecker",
		Short: "Woodpecker deterrent engine CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		sounds.Command(settings),
	)

	return rootCmd
}

// setupFlags configures persistent flags shared by all subcommands and
// binds them to viper so command-line arguments take precedence over the
// config file.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Detector.ModelPath, "model", viper.GetString("detector.modelpath"), "Path to the TFLite classifier model")
	cmd.PersistentFlags().StringVar(&settings.Sounds.Path, "soundpath", viper.GetString("sounds.path"), "Root directory of reaction sound assets")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
