package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// runAnalyze describes an image or video using the vision analyzers.
func runAnalyze(args []string) error {
	analyzeFlags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	analyzeFlags.SetOutput(os.Stderr)
	video := analyzeFlags.Bool("video", false, "Treat the input as a video")

	if err := analyzeFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing analyze flags: %w", err)
	}

	rest := analyzeFlags.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: insighthub analyze [-video] <path> [prompt]")
	}
	path := rest[0]
	prompt := strings.TrimSpace(strings.Join(rest[1:], " "))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var answer string
	if *video {
		answer, err = a.Videos.Analyze(ctx, path, prompt)
	} else {
		answer, err = a.Images.Analyze(ctx, path, prompt)
	}
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", path, err)
	}

	fmt.Println(answer)
	return nil
}
