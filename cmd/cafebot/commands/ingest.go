package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/audit"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/paraphrase"
	"github.com/54b3r/cafebot-go/internal/provider"
	"github.com/54b3r/cafebot-go/internal/qa"
)

// NewIngestCmd constructs the `cafebot ingest` command, which adds one QA
// fact (an answer plus its paraphrased questions) to the knowledge base.
func NewIngestCmd() *cobra.Command {
	var (
		collection   string
		document     string
		questions    []string
		answerType   string
		functionPath string
		params       string
		suggest      int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add one answer and its questions to the knowledge base",
		Long: `Embed and store one QA fact: a single answer record plus one record per
question paraphrase, written as one batch.

Function answers name a live-data endpoint (--function-path) and are
rendered from current cafe data at query time:
  /api/cafe/menu/available, /api/cafe/business-hours, /api/cafe/facilities

With --suggest N the configured chat model (MODEL_PROVIDER) proposes N more
paraphrases of the first question before the fact is stored.

Examples:
  cafebot ingest --document "매장 내 반려동물 동반이 가능합니다." -q "강아지 데려가도 돼요?" -q "반려동물 동반 가능한가요?"
  cafebot ingest --type function --function-path /api/cafe/business-hours -q "몇 시에 문 열어요?" --suggest 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			fact := qa.Fact{
				Document:     document,
				Questions:    questions,
				Kind:         qa.Kind(answerType),
				FunctionPath: functionPath,
			}
			if params != "" {
				if err := json.Unmarshal([]byte(params), &fact.Parameters); err != nil {
					return fmt.Errorf("ingest: --params must be a JSON object: %w", err)
				}
			}

			if suggest > 0 {
				chatModel, err := provider.NewFromEnv(ctx)
				if err != nil {
					return fmt.Errorf("ingest: failed to initialise model provider: %w", err)
				}
				suggester, err := paraphrase.New(chatModel)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				before := len(fact.Questions)
				if fact, err = suggester.Expand(ctx, fact, suggest); err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				for _, q := range fact.Questions[before:] {
					fmt.Fprintf(cmd.OutOrStdout(), "+ %s\n", q)
				}
				log.Info("paraphrases suggested", slog.Int("added", len(fact.Questions)-before))
			}

			rt, err := newRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer rt.Close()

			if collection == "" {
				collection = rt.chat.Collection()
			}
			err = rt.chat.Ingest(ctx, collection, fact)
			audit.LogIngest(ctx, log, "cli", collection, len(fact.Questions), err)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored 1 answer and %d questions in %q\n", len(fact.Questions), collection)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Target collection (default: CAFEBOT_COLLECTION)")
	cmd.Flags().StringVarP(&document, "document", "d", "", "Answer text (optional for function answers)")
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "Question paraphrase (repeatable)")
	cmd.Flags().StringVarP(&answerType, "type", "t", "text", "Answer type: text or function")
	cmd.Flags().StringVar(&functionPath, "function-path", "", "Live-data endpoint for function answers")
	cmd.Flags().StringVar(&params, "params", "", "Function parameters as a JSON object")
	cmd.Flags().IntVar(&suggest, "suggest", 0, "Ask the chat model for N extra paraphrases")

	return cmd
}
