package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/insightlab/insighthub/internal/catalog"
)

// runQuery asks the data query agent a natural language question.
func runQuery(args []string) error {
	queryFlags := flag.NewFlagSet("query", flag.ContinueOnError)
	queryFlags.SetOutput(os.Stderr)
	datasetName := queryFlags.String("dataset", "", "Dataset to query (optional if only one is loaded)")

	if err := queryFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing query flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(queryFlags.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: insighthub query [-dataset name] <question>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agent, err := a.Registry.Lookup(catalog.NameDataQuery)
	if err != nil {
		return fmt.Errorf("looking up agent: %w", err)
	}

	req := catalog.Request{Input: question}
	if *datasetName != "" {
		req.Options = map[string]string{"dataset": *datasetName}
	}

	result, err := agent.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("running agent: %w", err)
	}

	fmt.Println(result.Output)
	if sql := result.Metadata["sql"]; sql != "" {
		fmt.Println()
		fmt.Printf("SQL: %s\n", sql)
	}
	return nil
}
