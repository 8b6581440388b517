package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayf-project/retriever/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mesh server",
	Long: `Starts the HTTP API, the provider fetch scheduler and the neighbor
heartbeat, and blocks until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	server, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer server.Close()

	return server.Run(ctx)
}
