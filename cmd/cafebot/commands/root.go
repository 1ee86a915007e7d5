// Package commands defines all Cobra CLI commands for the cafebot binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/audit"
	"github.com/54b3r/cafebot-go/internal/config"
	"github.com/54b3r/cafebot-go/internal/logging"
)

// configPath holds the --config flag value for the config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cafebot",
		Short: "cafebot: a semantic QA chatbot for a single cafe",
		Long: `cafebot answers customer questions by matching them against curated
paraphrases in a vector store, then replies with the linked answer. Answers
about the menu, opening hours and facilities are rendered from live cafe data
at query time.

Embedding backend and vector store are selected via environment variables
or a config file (~/.cafebot/config.yaml or ./cafebot.toml).
See 'cafebot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override config file values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML or TOML config file (default: ~/.cafebot/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewSeedCmd(),
		NewDocumentsCmd(),
		NewUnmatchedCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return root
}
