package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayf-project/retriever/internal/app"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [provider-id]",
	Short: "Fetch documents from providers",
	Long: `Triggers a fetch-and-process run. With a provider ID only that
provider is fetched, otherwise all enabled providers run in sequence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	if len(args) > 0 {
		providerID := args[0]
		cmd.Printf("Fetching from %s...\n", providerID)
		if err := server.Ingestor().Ingest(ctx, providerID); err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		printStatus(cmd, ctx, server, providerID)
		return nil
	}

	cmd.Println("Fetching from all enabled providers...")
	if err := server.Ingestor().IngestAll(ctx); err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	for _, provider := range cfg.DomainProviders() {
		if provider.Enabled {
			printStatus(cmd, ctx, server, provider.ID)
		}
	}
	return nil
}

func printStatus(cmd *cobra.Command, ctx context.Context, server *app.App, providerID string) {
	status, err := server.Ingestor().Status(ctx, providerID)
	if err != nil {
		return
	}
	cmd.Printf("%s: %d processed, %d admitted, %d errors\n",
		status.ProviderID, status.DocumentsProcessed, status.DocumentsAdmitted, status.ErrorCount)
}
