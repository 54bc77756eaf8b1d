package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
)

// runDatasets handles the datasets subcommands: load, list, drop.
func runDatasets(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: insighthub datasets <load|list|drop>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	switch args[0] {
	case "load":
		if len(args) != 3 {
			return fmt.Errorf("usage: insighthub datasets load <name> <csv-path>")
		}
		ds, err := a.Datasets.LoadCSV(ctx, args[1], args[2])
		if err != nil {
			return fmt.Errorf("loading dataset: %w", err)
		}
		fmt.Printf("Loaded %q: %d rows, %d columns\n", ds.Name, ds.RowCount, len(ds.Columns))
		for _, c := range ds.Columns {
			fmt.Printf("  %-24s %s\n", c.Name, c.Type)
		}
		return nil

	case "list":
		datasets, err := a.Datasets.List(ctx)
		if err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}
		if len(datasets) == 0 {
			fmt.Println("No datasets loaded. Use: insighthub datasets load <name> <csv-path>")
			return nil
		}
		for _, ds := range datasets {
			fmt.Printf("  %-24s %d rows, %d columns\n", ds.Name, ds.RowCount, len(ds.Columns))
		}
		return nil

	case "drop":
		if len(args) != 2 {
			return fmt.Errorf("usage: insighthub datasets drop <name>")
		}
		if err := a.Datasets.Drop(ctx, args[1]); err != nil {
			return fmt.Errorf("dropping dataset: %w", err)
		}
		fmt.Printf("Dropped %q\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown datasets subcommand %q", args[0])
	}
}
