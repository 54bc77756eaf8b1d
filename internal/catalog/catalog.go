// Package catalog defines the agent catalog: the named, runnable agents
// InsightHub ships (document RAG, data query, autonomous reporter) and a
// registry for looking them up by name.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Agent names as exposed in the catalog.
const (
	NameDocumentRAG = "document_rag"
	NameDataQuery   = "data_query"
	NameReporter    = "autonomous_reporter"
)

// ErrUnknownAgent is returned by Lookup for unregistered names.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrDuplicateAgent is returned by Register when a name is already taken.
var ErrDuplicateAgent = errors.New("agent already registered")

// Request is the input to an agent run.
type Request struct {
	// Input is the user's question, topic, or instruction.
	Input string

	// Options carries agent-specific parameters (e.g. "dataset" for the
	// data query agent).
	Options map[string]string
}

// Result is the output of an agent run.
type Result struct {
	// Output is the agent's final text.
	Output string

	// Sources lists the documents, tables, or URLs the output is
	// grounded on.
	Sources []string

	// Metadata carries agent-specific extras (generated SQL, artifact
	// paths, chunk counts).
	Metadata map[string]string
}

// Agent is a runnable catalog entry.
type Agent interface {
	// Name returns the unique catalog identifier.
	Name() string

	// Description is the one-line summary shown in catalog listings; the
	// model also uses it to pick an agent in routed scenarios.
	Description() string

	// Run executes the agent.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Entry is a catalog listing row.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds the registered agents.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent. Names must be unique.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	name := a.Name()
	if name == "" {
		return fmt.Errorf("agent has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}
	r.agents[name] = a
	return nil
}

// Lookup returns the agent registered under name.
func (r *Registry) Lookup(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	return a, nil
}

// List returns catalog entries sorted by name. Every entry corresponds to
// a registered, runnable agent.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.agents))
	for _, a := range r.agents {
		entries = append(entries, Entry{Name: a.Name(), Description: a.Description()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
