package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/jarvis/internal/model"
)

func newModelsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List or pull models on the local Ollama daemon",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List local models",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := flags.load()
				if err != nil {
					return err
				}
				models, err := model.NewManager(cfg.Offline.BaseURL).List(cmd.Context())
				if err != nil {
					return err
				}
				if len(models) == 0 {
					printf(cmd, "No local models. Try: jarvis models pull llama3.2\n")
					return nil
				}
				for _, m := range models {
					marker := " "
					if m.Name == cfg.Offline.Model || m.Name == cfg.Offline.Model+":latest" {
						marker = okStyle.Render("*")
					}
					printf(cmd, "%s %-32s %s\n", marker, m.Name, dimStyle.Render(humanSize(m.Size)))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull <model>",
			Short: "Pull a model into the local daemon",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := flags.load()
				if err != nil {
					return err
				}
				last := ""
				err = model.NewManager(cfg.Offline.BaseURL).Pull(cmd.Context(), args[0], func(p model.PullProgress) {
					line := p.Status
					if p.Total > 0 {
						line = fmt.Sprintf("%s %3.0f%%", p.Status, p.Percent)
					}
					if line != last {
						printf(cmd, "%s\n", line)
						last = line
					}
				})
				if err != nil {
					return err
				}
				printf(cmd, "%s pulled %s\n", okStyle.Render("✓"), args[0])
				return nil
			},
		},
	)
	return cmd
}

func humanSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
