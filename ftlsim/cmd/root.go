// Package cmd provides the command-line interface of ftlsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/sarchlab/ftlsim/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ftlsim",
		Short: "ftlsim simulates the flash translation layer of an SSD.",
		Long: `ftlsim simulates the flash translation layer of an SSD. It ` +
			`replays host request traces against a simulated device, ` +
			`generates traces, and inspects device layouts.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "",
		"Device configuration file. Defaults are used when empty.")
	root.PersistentFlags().String("log-level", "warn",
		"Log level: debug, info, warn, or error.")

	root.AddCommand(newRunCmd(), newGenCmd(), newInspectCmd())

	return root
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	if level > zapcore.DebugLevel {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

func loadConfig(cmd *cobra.Command) (config.Device, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}

	dev, err := config.Load(path)
	if err != nil {
		return dev, fmt.Errorf("load config %s: %w", path, err)
	}

	return dev, nil
}
