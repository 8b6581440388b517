// Package cli provides the cobra command tree for the retriever
// binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayf-project/retriever/internal/config"
	"github.com/kayf-project/retriever/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "retriever",
	Short: "Federated document retrieval mesh server",
	Long: `Retriever ingests documents from configured providers, cleans and
translates them, deduplicates by content signature, and answers
federated queries across a mesh of neighbor servers.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// loadConfig reads the configured TOML file, or defaults when no path
// is given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("a configuration file is required (--config)")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
