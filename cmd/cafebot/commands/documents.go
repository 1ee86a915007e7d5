package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/logging"
)

// NewDocumentsCmd constructs the `cafebot documents` command, which dumps
// every record of a collection, answers and questions alike.
func NewDocumentsCmd() *cobra.Command {
	var collection string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List every record in a collection",
		Long: `Print all stored records of a collection with their metadata, in the
store's scan order. Useful for checking which answer a question links to.

Examples:
  cafebot documents
  cafebot documents -c menu_faq --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			rt, err := newRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			defer rt.Close()

			records, err := rt.chat.Documents(ctx, collection)
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records) //nolint:wrapcheck // CLI entry point
			}

			for i := range records {
				// Vectors are noise on a terminal.
				records[i].Embedding = nil
			}
			pp.Println(records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to list (default: CAFEBOT_COLLECTION)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")

	return cmd
}
