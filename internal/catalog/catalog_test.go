package catalog

import (
	"context"
	"errors"
	"testing"
)

// stubAgent is a minimal Agent for registry tests.
type stubAgent struct {
	name        string
	description string
}

func (s *stubAgent) Name() string        { return s.name }
func (s *stubAgent) Description() string { return s.description }
func (s *stubAgent) Run(ctx context.Context, req Request) (*Result, error) {
	return &Result{Output: "ok"}, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	agent := &stubAgent{name: NameDocumentRAG, description: "answers questions over indexed documents"}
	if err := r.Register(agent); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	got, err := r.Lookup(NameDocumentRAG)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got.Name() != NameDocumentRAG {
		t.Errorf("Lookup().Name() = %q, want %q", got.Name(), NameDocumentRAG)
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("nope")
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Lookup() = %v, want %v", err, ErrUnknownAgent)
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubAgent{name: NameDataQuery}); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	err := r.Register(&stubAgent{name: NameDataQuery})
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("second Register() = %v, want %v", err, ErrDuplicateAgent)
	}
}

func TestRegistry_RejectsNilAndEmpty(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}
	if err := r.Register(&stubAgent{name: ""}); err == nil {
		t.Error("Register() with empty name should fail")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{NameReporter, NameDocumentRAG, NameDataQuery} {
		if err := r.Register(&stubAgent{name: name, description: name + " agent"}); err != nil {
			t.Fatalf("Register(%s) error: %v", name, err)
		}
	}

	entries := r.List()
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}

	// The catalog invariant: exactly the registered agents, sorted by name.
	want := []string{NameReporter, NameDataQuery, NameDocumentRAG} // lexicographic order
	for i, entry := range entries {
		if entry.Name != want[i] {
			t.Errorf("List()[%d].Name = %q, want %q", i, entry.Name, want[i])
		}
		if entry.Description == "" {
			t.Errorf("List()[%d] has empty description", i)
		}
	}
}
