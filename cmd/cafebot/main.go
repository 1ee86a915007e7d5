// Command cafebot is the entry point for the cafe chatbot. It answers
// customer questions by semantic matching against a curated QA knowledge
// base and serves the HTTP API, an MCP server and curator tooling.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/54b3r/cafebot-go/cmd/cafebot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
