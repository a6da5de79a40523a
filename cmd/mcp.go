package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/plotforge/plotforge/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for writing agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing
research and evidence tools to AI writing agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		e, err := openEngine(cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "plotforge MCP server started on stdio (data=%s)\n", cfg.DataDir)

		srv := mcpserver.NewServer(e.session, e.packs, e.cards, e.index)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
