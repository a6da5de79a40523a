package cmd

import (
	"github.com/spf13/cobra"

	"github.com/plotforge/plotforge/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP server for writing-tool frontends: research runs,
memory packs, cards, answers, manuscript import, and a websocket stream of
research progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		e, err := openEngine(cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := server.New(cfg, e.session, e.cards, e.packs, e.importer)
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
