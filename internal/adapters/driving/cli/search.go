package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayf-project/retriever/internal/app"
	"github.com/kayf-project/retriever/internal/core/domain"
)

var searchLocale string

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Run a federated query",
	Long: `Submits a query to this server, which searches its local store and
fans out to live neighbors, and prints the merged summary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchLocale, "locale", "l", "en",
		"language tag of the query text")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	text := strings.Join(args, " ")
	summary, err := server.Queries().Submit(ctx, text, searchLocale, nil)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printSummary(cmd, summary)
	return nil
}

func printSummary(cmd *cobra.Command, summary *domain.ServerSummary) {
	if len(summary.Items) == 0 {
		cmd.Println("No results.")
	}
	for i, item := range summary.Items {
		cmd.Printf("%2d. [%.3f] %s (from %s)\n", i+1, item.Score, item.Snippet, item.ServerID)
	}

	cmd.Printf("\n%d results from %s", len(summary.Items), strings.Join(summary.Provenance, ", "))
	if summary.Completeness == domain.SummaryDegraded {
		cmd.Printf(" (degraded; unresponsive: %s)", strings.Join(summary.Unresponsive, ", "))
	}
	cmd.Println()
}
