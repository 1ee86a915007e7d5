package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/audit"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/seed"
)

// NewSeedCmd constructs the `cafebot seed` command, which bulk-loads QA
// facts from a YAML or JSON file.
func NewSeedCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Bulk-load QA facts from a YAML or JSON file",
		Long: `Validate a seed file and ingest every fact in it, one batch per fact.
The run stops at the first fact that fails; facts before it stay stored.

The target collection is --collection, then the file's "collection" key,
then CAFEBOT_COLLECTION.

Example seed.yaml:
  collection: chatbot_data
  facts:
    - document: "매장 내 반려동물 동반이 가능합니다."
      questions: ["강아지 데려가도 돼요?", "반려동물 동반 가능한가요?"]
    - answerType: function
      functionPath: /api/cafe/business-hours
      questions: ["몇 시에 문 열어요?", "지금 영업하나요?"]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			file, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer rt.Close()

			target := collection
			if target == "" {
				target = file.Collection
			}
			if target == "" {
				target = rt.chat.Collection()
			}

			questions := 0
			for _, f := range file.Facts {
				questions += len(f.Questions)
			}

			n, err := seed.Run(ctx, rt.chat, file, target, func(msg string) {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			})
			audit.LogIngest(ctx, log, "seed", target, questions, err)
			if err != nil {
				log.Error("seed: stopped", slog.Int("ingested", n), slog.Int("total", len(file.Facts)))
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d facts into %q\n", n, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Target collection (overrides the file)")

	return cmd
}
