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

// runReport runs the autonomous reporter on a topic. With -site, research
// is scoped to crawling a single site instead of web search.
func runReport(args []string) error {
	reportFlags := flag.NewFlagSet("report", flag.ContinueOnError)
	reportFlags.SetOutput(os.Stderr)
	site := reportFlags.String("site", "", "Restrict research to crawling this site")

	if err := reportFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing report flags: %w", err)
	}

	topic := strings.TrimSpace(strings.Join(reportFlags.Args(), " "))
	if topic == "" {
		return fmt.Errorf("usage: insighthub report [-site url] <topic>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agent, err := a.Registry.Lookup(catalog.NameReporter)
	if err != nil {
		return fmt.Errorf("looking up agent: %w", err)
	}

	req := catalog.Request{Input: topic}
	if *site != "" {
		req.Options = map[string]string{"site": *site}
	}

	fmt.Fprintf(os.Stderr, "Researching %q, this can take a few minutes...\n", topic)

	result, err := agent.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("running reporter: %w", err)
	}

	fmt.Println(result.Output)
	if path := result.Metadata["artifact_path"]; path != "" {
		fmt.Fprintf(os.Stderr, "\nReport saved to %s\n", path)
	}
	return nil
}
