package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/insightlab/insighthub/internal/app"
	"github.com/insightlab/insighthub/internal/catalog"
)

// runChat starts the interactive chat loop.
func runChat() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sess, err := a.Sessions.Create(ctx, "New conversation", catalog.NameDocumentRAG)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fmt.Printf("InsightHub v%s (model: %s)\n", AppVersion, a.Config.ModelName)
	fmt.Println("Type /help for commands, /exit to quit.")
	fmt.Println()

	return chatLoop(ctx, a, sess.ID, os.Stdin, os.Stdout)
}

// chatLoop reads user input line by line and streams agent responses.
// Split out from runChat so tests can drive it with in-memory readers.
func chatLoop(ctx context.Context, a *app.App, sessionID uuid.UUID, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Fprintln(out)
			return nil // EOF (Ctrl+D)
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := handleCommand(ctx, a, input, out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		streamed := false
		callback := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if part.Text != "" {
					streamed = true
					fmt.Fprint(out, part.Text)
				}
			}
			return nil
		}

		resp, err := a.Chat.ExecuteStream(ctx, sessionID, input, callback)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		// Streaming already printed the text incrementally.
		if !streamed {
			fmt.Fprint(out, resp.FinalText)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out)
	}
}

// handleCommand processes slash commands. Returns true when the loop
// should exit.
func handleCommand(ctx context.Context, a *app.App, input string, out io.Writer) (bool, error) {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /ingest <path>       Index a file or directory")
		fmt.Fprintln(out, "  /documents           List indexed documents")
		fmt.Fprintln(out, "  /datasets            List loaded datasets")
		fmt.Fprintln(out, "  /agents              List the agent catalog")
		fmt.Fprintln(out, "  /version             Show version")
		fmt.Fprintln(out, "  /exit, /quit         Exit")
		return false, nil

	case "/version":
		fmt.Fprintf(out, "InsightHub v%s\n", AppVersion)
		return false, nil

	case "/ingest":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /ingest <path>")
		}
		return false, ingestPath(ctx, a, args[0], out)

	case "/documents":
		docs, err := a.Indexer.ListDocuments(ctx)
		if err != nil {
			return false, err
		}
		if len(docs) == 0 {
			fmt.Fprintln(out, "no documents indexed")
			return false, nil
		}
		for _, d := range docs {
			fmt.Fprintf(out, "  %s  %s\n", d.ID, d.Metadata["file_name"])
		}
		return false, nil

	case "/datasets":
		datasets, err := a.Datasets.List(ctx)
		if err != nil {
			return false, err
		}
		if len(datasets) == 0 {
			fmt.Fprintln(out, "no datasets loaded")
			return false, nil
		}
		for _, ds := range datasets {
			fmt.Fprintf(out, "  %s  (%d rows, %d columns)\n", ds.Name, ds.RowCount, len(ds.Columns))
		}
		return false, nil

	case "/agents":
		for _, e := range a.Registry.List() {
			fmt.Fprintf(out, "  %-22s %s\n", e.Name, e.Description)
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}
