// Package cli wires the swingops command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// RootConfig carries the global flags shared by every subcommand.
type RootConfig struct {
	ConfigPath  string
	LogLevel    string
	MetricsAddr string
	NoColor     bool
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "swingops",
		Short:         "swingops: profile-aware swing signal engine and historical simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "./swingops.yaml", "Path to config file")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.MetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (empty = off)")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(rc)
	}

	cmd.AddCommand(
		newBacktestCmd(rc),
		newInitConfigCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("swingops (dev)")
		},
	})

	return cmd
}

func setupLogging(rc *RootConfig) error {
	level, err := zerolog.ParseLevel(rc.LogLevel)
	if err != nil {
		return fmt.Errorf("bad --log-level %q: %w", rc.LogLevel, err)
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    rc.NoColor,
	}
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
