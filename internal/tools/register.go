package tools

import (
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/dataset"
	"github.com/insightlab/insighthub/internal/knowledge"
	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/reporter"
	"github.com/insightlab/insighthub/internal/security"
)

// Deps holds everything the full toolset needs.
type Deps struct {
	Knowledge     *knowledge.Store
	Datasets      *dataset.Store
	URLValidator  *security.URL
	PathValidator *security.Path
	Searcher      *reporter.Searcher // optional: enables search_web
	Logger        log.Logger
}

// RegisterAll defines every toolset with Genkit and returns the combined
// tool list for the chat agent. Tool definition is global per Genkit
// instance, so call this once during setup.
func RegisterAll(g *genkit.Genkit, deps Deps) ([]ai.Tool, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}

	kt, err := NewKnowledgeToolset(deps.Knowledge, deps.Logger)
	if err != nil {
		return nil, err
	}
	dt, err := NewDatasetToolset(deps.Datasets, deps.Logger)
	if err != nil {
		return nil, err
	}
	// A typed nil must not reach the interface field, or the search tool
	// would be registered against a nil searcher.
	var searcher webSearcher
	if deps.Searcher != nil {
		searcher = deps.Searcher
	}
	wt, err := NewWebToolset(deps.URLValidator, searcher, deps.Logger)
	if err != nil {
		return nil, err
	}
	ft, err := NewFileToolset(deps.PathValidator, deps.Logger)
	if err != nil {
		return nil, err
	}

	var tools []ai.Tool
	tools = append(tools, kt.Register(g)...)
	tools = append(tools, dt.Register(g)...)
	tools = append(tools, wt.Register(g)...)
	tools = append(tools, ft.Register(g)...)
	return tools, nil
}
