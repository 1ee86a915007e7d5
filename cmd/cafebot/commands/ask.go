package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/logging"
)

var (
	answerColor     = color.New(color.Bold)
	provenanceColor = color.New(color.Faint)
)

// NewAskCmd constructs the `cafebot ask` command, which answers a single
// query against the knowledge base and prints the reply to stdout.
func NewAskCmd() *cobra.Command {
	var asJSON bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the chatbot a question",
		Long: `Answer one query exactly as POST /api/chat/query would.

Examples:
  cafebot ask "지금 영업하나요?"
  cafebot ask -v "와이파이 비밀번호 알려주세요"
  cafebot ask --json "메뉴 뭐 있어요?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			rt, err := newRuntime(ctx, log, runtimeOptions{})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer rt.Close()

			reply := rt.chat.Ask(ctx, strings.Join(args, " "))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reply) //nolint:wrapcheck // CLI entry point
			}

			answerColor.Fprintln(os.Stdout, reply.Answer)
			if verbose && reply.Distance != nil {
				provenanceColor.Fprintf(os.Stdout, "matched %q (distance %.4f)\n", reply.MatchedQuestion, *reply.Distance)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the matched question and its distance")

	return cmd
}
