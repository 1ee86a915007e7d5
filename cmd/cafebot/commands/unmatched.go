package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/store"
)

// NewUnmatchedCmd constructs the `cafebot unmatched` command, which lists
// recent queries that found no answer so curators can add paraphrases.
func NewUnmatchedCmd() *cobra.Command {
	var limit int
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "unmatched",
		Short: "List recent queries the knowledge base could not answer",
		Long: `List the newest no-match queries from the query log, newest first.
Only the local database is opened; no embedding provider is needed.

Examples:
  cafebot unmatched
  cafebot unmatched -n 50
  cafebot unmatched --errors`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := getEnvOrDefault("CAFEBOT_DB_PATH", "")
			if dbPath == "" {
				var err error
				if dbPath, err = store.DefaultDBPath(); err != nil {
					return err
				}
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			outcome := store.OutcomeNoMatch
			if showErrors {
				outcome = store.OutcomeError
			}
			entries, err := db.Recent(cmd.Context(), outcome, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no entries")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tQUERY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Query)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&showErrors, "errors", false, "List queries that failed with an upstream error instead")

	return cmd
}
