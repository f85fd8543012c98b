package cli

import (
	"github.com/spf13/cobra"

	"fxjournal/internal/api"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Starts the journal HTTP API on the configured address and blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Addr()
			}

			server := api.NewServer(app.Service, app.Leaderboard, app.Blob, app.Config.Auth.JWTSecret, app.Logger)
			return server.Run(addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}
