// Package cmd contains the InsightHub command line interface: command
// routing, flag parsing, and the interactive chat loop. main.go stays a
// minimal entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/insightlab/insighthub/internal/app"
	"github.com/insightlab/insighthub/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the InsightHub CLI.
// It handles flag parsing and command routing, and is designed to be
// called from main().
func Execute() error {
	// Handle special flags before full initialization so --version and
	// --help work even if config is invalid.
	command := ""
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "version", "--version", "-v":
		return printVersionInfo()
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	switch command {
	case "", "chat":
		return runChat()
	case "serve":
		return runServe()
	case "ask":
		return runAsk(os.Args[2:])
	case "ingest":
		return runIngest(os.Args[2:])
	case "datasets":
		return runDatasets(os.Args[2:])
	case "query":
		return runQuery(os.Args[2:])
	case "report":
		return runReport(os.Args[2:])
	case "analyze":
		return runAnalyze(os.Args[2:])
	case "agents":
		return runAgents()
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", command)
	}
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
//
// Logs go to stderr so stdout stays clean for command output.
func initLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if os.Getenv("DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// checkRequiredEnv verifies that all required environment variables are set.
// Returns a user-friendly error with setup instructions if validation fails.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "InsightHub requires a Gemini API key to function.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

// setupApp loads configuration and assembles the full application.
// The caller owns the returned App and must Close it.
func setupApp(ctx context.Context) (*app.App, error) {
	if err := checkRequiredEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

// printVersionInfo displays version information.
func printVersionInfo() error {
	fmt.Printf("InsightHub v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

// printHelp displays the help message for the InsightHub CLI.
func printHelp() {
	fmt.Println("InsightHub - AI insight workbench for documents, data, and the web")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  insighthub                         Start interactive chat (default)")
	fmt.Println("  insighthub serve [addr]            Start the HTTP API server")
	fmt.Println("  insighthub ask <question>          One-shot question")
	fmt.Println("  insighthub ingest <path>           Index a file or directory into the knowledge base")
	fmt.Println("  insighthub datasets load <name> <csv>")
	fmt.Println("                                     Load a CSV file as a queryable dataset")
	fmt.Println("  insighthub datasets list           List loaded datasets")
	fmt.Println("  insighthub datasets drop <name>    Remove a dataset")
	fmt.Println("  insighthub query [-dataset name] <question>")
	fmt.Println("                                     Ask the data query agent")
	fmt.Println("  insighthub report [-site url] <topic>")
	fmt.Println("                                     Run the autonomous reporter")
	fmt.Println("  insighthub analyze [-video] <path> [prompt]")
	fmt.Println("                                     Analyze an image or video")
	fmt.Println("  insighthub agents                  List the agent catalog")
	fmt.Println("  insighthub version                 Show version information")
	fmt.Println("  insighthub help                    Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
