// Command dave is a terminal data analyst: it uploads datasets to a hosted
// code-interpreter assistant and streams its narration, code, output and
// charts into a TUI.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... OPENAI_ASSISTANT_ID=asst_... dave --data 'sales/**/*.csv'
//	GEMINI_API_KEY=gk-... dave --data sales.csv
//	dave check "question to screen"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Env vars are read here only and passed down as values.
	env := environment{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		AssistantID: os.Getenv("OPENAI_ASSISTANT_ID"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cmd := newRootCmd(env, home)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dave: %v\n", err)
		os.Exit(1)
	}
}
