package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newWeatherCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "weather [city]",
		Short: "Show the current weather (your location when no city is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			report := newWeather(cfg, logger).Current(cmd.Context(), strings.Join(args, " "))
			printf(cmd, "%s\n", report)
			return nil
		},
	}
}
