package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"raggedbooks/internal/config"
	"raggedbooks/internal/llm"
)

func modelsCMD(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage models on the Ollama server",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath())
			if err != nil {
				return err
			}
			models, err := llm.NewModelManager(cfg.OllamaURL).List(cmd.Context())
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), models)
		},
	}

	pull := &cobra.Command{
		Use:   "pull [model...]",
		Short: "Pull models (default the configured embedding and chat models)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath())
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = []string{cfg.EmbeddingModel, cfg.ChatModel}
			}

			out := cmd.OutOrStdout()
			manager := llm.NewModelManager(cfg.OllamaURL)
			for _, name := range names {
				fmt.Fprintf(out, "Pulling %s\n", name)
				last := ""
				err := manager.Pull(cmd.Context(), name, func(p llm.PullProgress) {
					if p.Status != last {
						fmt.Fprintf(out, "  %s\n", p.Status)
						last = p.Status
					}
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(list, pull)
	return cmd
}

func printModels(w io.Writer, models []llm.ModelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%.1f GB\t%s\n", m.Name, float64(m.Size)/1e9, m.ModifiedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
