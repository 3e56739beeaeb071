package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/jarvis/internal/config"
	"github.com/jeanpaul/jarvis/internal/credential"
	"github.com/jeanpaul/jarvis/internal/health"
	"github.com/jeanpaul/jarvis/internal/model"
	"github.com/jeanpaul/jarvis/internal/provider"
)

func newDoctorCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the offline model, cloud credentials, Wikipedia and weather services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			printf(cmd, "%s\n", headerStyle.Render("Jarvis doctor"))
			problems := 0
			for _, s := range health.CheckAll(ctx, doctorTargets(cfg)) {
				if !s.Reachable {
					problems++
					printf(cmd, "%s %-8s %s\n", failStyle.Render("✗"), s.Name, s.Error)
					continue
				}
				detail := dimStyle.Render(fmt.Sprintf("%s (%s)", s.BaseURL, s.Latency.Round(time.Millisecond)))
				printf(cmd, "%s %-8s %s\n", okStyle.Render("✓"), s.Name, detail)
			}

			switch {
			case len(cfg.Cloud.APIKeys) == 0:
				problems++
				printf(cmd, "%s %-8s no keys (set OPENAI_KEY_1..%d)\n", failStyle.Render("✗"), "keys", credential.MaxEnvKeys)
			default:
				masked := make([]string, len(cfg.Cloud.APIKeys))
				for i, k := range cfg.Cloud.APIKeys {
					masked[i] = credential.Mask(k)
				}
				printf(cmd, "%s %-8s %s\n", okStyle.Render("✓"), "keys", dimStyle.Render(strings.Join(masked, ", ")))
			}

			if cfg.Offline.Model == "" {
				printf(cmd, "%s %-8s no offline model configured (OFFLINE_MODEL)\n", dimStyle.Render("-"), "model")
			} else if ok, err := model.NewManager(cfg.Offline.BaseURL).Has(ctx, model.Normalize(cfg.Offline.Model)); err != nil || !ok {
				problems++
				printf(cmd, "%s %-8s %s not available locally (jarvis models pull %s)\n", failStyle.Render("✗"), "model", cfg.Offline.Model, cfg.Offline.Model)
			} else {
				printf(cmd, "%s %-8s %s\n", okStyle.Render("✓"), "model", cfg.Offline.Model)
			}

			if cfg.Weather.APIKey == "" {
				printf(cmd, "%s %-8s WEATHERAPI_KEY not set\n", dimStyle.Render("-"), "weather")
			}
			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}
}

func doctorTargets(cfg *config.Config) []health.Target {
	key := ""
	if len(cfg.Cloud.APIKeys) > 0 {
		key = cfg.Cloud.APIKeys[0]
	}
	cloudURL := cfg.Cloud.BaseURL
	if cloudURL == "" && cfg.Cloud.Type == provider.KindOpenAI {
		cloudURL = "https://api.openai.com/v1"
	}
	return []health.Target{
		{Name: "offline", Kind: provider.KindOpenAI, BaseURL: model.NewManager(cfg.Offline.BaseURL).URL() + "/v1"},
		{Name: "cloud", Kind: cfg.Cloud.Type, BaseURL: cloudURL, APIKey: key},
		{Name: "wiki", Kind: health.KindHTTP, BaseURL: cfg.Wiki.APIURL},
		{Name: "weather", Kind: health.KindHTTP, BaseURL: cfg.Weather.APIURL + "/current.json"},
		{Name: "locate", Kind: health.KindHTTP, BaseURL: cfg.Weather.LocateURL},
	}
}
