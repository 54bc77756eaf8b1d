package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insightlab/insighthub/internal/app"
)

// runIngest indexes a file or directory into the knowledge base.
func runIngest(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: insighthub ingest <path>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return ingestPath(ctx, a, args[0], os.Stdout)
}

// ingestPath indexes a single file or walks a directory, printing a summary.
// Shared between the ingest command and the /ingest chat command.
func ingestPath(ctx context.Context, a *app.App, path string, out io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking path: %w", err)
	}

	if info.IsDir() {
		result, err := a.Indexer.AddDirectory(ctx, path)
		if err != nil {
			return fmt.Errorf("indexing directory: %w", err)
		}
		fmt.Fprintf(out, "Indexed %d files (%d chunks, %d skipped, %d failed) in %s\n",
			result.FilesAdded, result.ChunksAdded, result.FilesSkipped,
			result.FilesFailed, result.Duration.Round(time.Millisecond))
		return nil
	}

	chunks, err := a.Indexer.AddFile(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing file: %w", err)
	}
	fmt.Fprintf(out, "Indexed %s (%d chunks)\n", path, chunks)
	return nil
}
