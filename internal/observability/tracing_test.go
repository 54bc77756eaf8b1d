package observability

import (
	"context"
	"testing"

	"github.com/insightlab/insighthub/internal/log"
)

func TestSetup_EmptyEndpointDisablesTracing(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "test"}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup() returned nil shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}
