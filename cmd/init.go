package cmd

import (
	"github.com/spf13/cobra"

	"github.com/plotforge/plotforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize plotforge configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure plotforge for your project and generates a .plotforge.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
