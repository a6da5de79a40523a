package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	project string
)

var rootCmd = &cobra.Command{
	Use:   "plotforge",
	Short: "Context research engine for long-form fiction projects",
	Long: `Plotforge builds per-chapter working memory for novel-writing agents.
It imports your manuscript, tracks character and world cards, and runs a
multi-round research loop that retrieves evidence, scores knowledge gaps,
and compiles a budget-bounded memory pack for each chapter.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".plotforge.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&project, "project", "default", "project identifier")
}
