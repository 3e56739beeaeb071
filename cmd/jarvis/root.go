package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/jarvis/internal/config"
	"github.com/jeanpaul/jarvis/internal/logging"
)

const jarvisLongDesc = `Jarvis is a memory-backed personal assistant.

Run it without arguments to start a session. Answers come from what Jarvis
remembers, a local Ollama model, a cloud model and Wikipedia, in that order.

  jarvis                 Start an interactive session
  jarvis weather [city]  Current weather
  jarvis crawl <url>...  Archive pages or documents (and learn them)
  jarvis models          Manage local models
  jarvis doctor          Check every dependency
  jarvis config          Print the effective configuration`

type rootFlags struct {
	configDir string
	debug     bool
	logJSON   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "jarvis",
		Short:         "Jarvis - memory-backed personal assistant",
		Long:          jarvisLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, logger)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "Directory holding config.yaml and .env (default: working directory)")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Log as JSON")

	cmd.AddCommand(
		newWeatherCmd(flags),
		newCrawlCmd(flags),
		newModelsCmd(flags),
		newDoctorCmd(flags),
		newConfigCmd(flags),
	)
	return cmd
}

func (f *rootFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configDir)
	if err != nil {
		return nil, nil, err
	}
	level := logging.ParseLevel(cfg.Log.Level)
	if f.debug {
		level = slog.LevelDebug
	}
	logger := logging.New(
		logging.WithLevel(level),
		logging.WithJSON(cfg.Log.JSON || f.logJSON),
		logging.WithWriter(os.Stderr),
	)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
