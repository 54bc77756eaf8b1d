package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/insightlab/insighthub/internal/catalog"
)

// runAsk answers a one-shot question through the document RAG agent.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: insighthub ask <question>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agent, err := a.Registry.Lookup(catalog.NameDocumentRAG)
	if err != nil {
		return fmt.Errorf("looking up agent: %w", err)
	}

	result, err := agent.Run(ctx, catalog.Request{Input: question})
	if err != nil {
		return fmt.Errorf("running agent: %w", err)
	}

	fmt.Println(result.Output)
	printSources(result.Sources)
	return nil
}

// printSources lists grounding sources, if any, after the main output.
func printSources(sources []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Sources:")
	for _, s := range sources {
		fmt.Printf("  - %s\n", s)
	}
}
