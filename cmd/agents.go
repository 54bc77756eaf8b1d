package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
)

// runAgents prints the agent catalog.
func runAgents() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Println("Available agents:")
	for _, e := range a.Registry.List() {
		fmt.Printf("  %-22s %s\n", e.Name, e.Description)
	}
	return nil
}
