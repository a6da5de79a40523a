package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import manuscript files into the evidence store",
	Long: `Walks the given directory (default: current directory), matches files
against the configured include/exclude globs, and loads each chapter's text
into the evidence store. Re-importing a file replaces its previous chunks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		e, err := openEngine(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.importer.Run(cmd.Context(), project, root)
		if err != nil {
			return fmt.Errorf("importing: %w", err)
		}

		fmt.Printf("Imported %d files (%d chunks) into project %q.\n",
			result.Files, result.Chunks, project)
		for _, chapter := range result.Chapters {
			fmt.Printf("  %s\n", chapter)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
