package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/log"
)

// Description is the catalog entry for the data query agent.
const Description = "Answers natural language questions about loaded tabular datasets by generating and executing read-only SQL, then explaining the results."

var sqlSystemPrompt = `You are a SQL analyst working against a SQLite database.
Generate exactly one read-only SELECT statement that answers the user's question.

Rules:
- SELECT statements only. Never modify data or schema.
- Use only the tables and columns described in the provided schema.
- Prefer aggregates over raw row dumps when the question asks for a summary.
- Keep the result set small; the runtime caps it at ` + fmt.Sprint(MaxQueryRows) + ` rows.`

const summarySystemPrompt = `You are a data analyst. Given a question, the SQL that was executed
and its results, write a concise answer in plain language. Mention concrete
numbers from the results. If the results are empty, say so directly.`

// queryPlan is the structured output requested from the model.
type queryPlan struct {
	SQL       string `json:"sql" jsonschema_description:"A single SQLite SELECT statement answering the question"`
	Rationale string `json:"rationale" jsonschema_description:"One sentence explaining what the query computes"`
}

// Agent answers questions about registered datasets. It generates SQL with
// the model, validates it, executes it locally and summarizes the rows. A
// query that fails to execute gets one correction attempt with the database
// error included.
type Agent struct {
	g         *genkit.Genkit
	store     *Store
	modelName string
	logger    log.Logger
}

// NewAgent creates the data query agent.
func NewAgent(g *genkit.Genkit, store *Store, modelName string, logger log.Logger) (*Agent, error) {
	if g == nil {
		return nil, errors.New("genkit instance cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if modelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Agent{g: g, store: store, modelName: modelName, logger: logger}, nil
}

// Name implements catalog.Agent.
func (a *Agent) Name() string { return catalog.NameDataQuery }

// Description implements catalog.Agent.
func (a *Agent) Description() string { return Description }

// Run implements catalog.Agent. The dataset to query comes from
// req.Options["dataset"]; when exactly one dataset is registered it is used
// implicitly.
func (a *Agent) Run(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("question cannot be empty")
	}

	ds, err := a.resolveDataset(ctx, req.Options["dataset"])
	if err != nil {
		return nil, err
	}

	plan, err := a.generateSQL(ctx, ds, req.Input, "")
	if err != nil {
		return nil, err
	}

	cols, rows, execErr := a.execute(ctx, plan.SQL)
	if execErr != nil {
		a.logger.Warn("generated query failed, retrying with error context",
			"dataset", ds.Name, "error", execErr)

		plan, err = a.generateSQL(ctx, ds, req.Input, execErr.Error())
		if err != nil {
			return nil, err
		}
		cols, rows, execErr = a.execute(ctx, plan.SQL)
		if execErr != nil {
			return nil, fmt.Errorf("query failed after retry: %w", execErr)
		}
	}

	answer, err := a.summarize(ctx, req.Input, plan.SQL, cols, rows)
	if err != nil {
		return nil, err
	}

	return &catalog.Result{
		Output: answer,
		Metadata: map[string]string{
			"dataset":   ds.Name,
			"sql":       plan.SQL,
			"rationale": plan.Rationale,
			"row_count": fmt.Sprint(len(rows)),
		},
	}, nil
}

func (a *Agent) resolveDataset(ctx context.Context, name string) (*Dataset, error) {
	if name != "" {
		return a.store.Get(ctx, name)
	}

	all, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 0:
		return nil, errors.New("no datasets loaded, ingest a CSV file first")
	case 1:
		return &all[0], nil
	default:
		names := make([]string, len(all))
		for i, ds := range all {
			names[i] = ds.Name
		}
		return nil, fmt.Errorf("multiple datasets loaded, specify one of: %s", strings.Join(names, ", "))
	}
}

// generateSQL asks the model for a query plan. When prevError is non-empty
// the prompt includes the failed attempt so the model can correct it.
func (a *Agent) generateSQL(ctx context.Context, ds *Dataset, question, prevError string) (*queryPlan, error) {
	prompt := fmt.Sprintf("Schema:\n%s\nQuestion: %s", ds.SchemaDescription(), question)
	if prevError != "" {
		prompt += fmt.Sprintf("\n\nThe previous query failed with this SQLite error:\n%s\nGenerate a corrected query.", prevError)
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(sqlSystemPrompt),
		ai.WithPrompt("%s", prompt),
		ai.WithOutputType(queryPlan{}),
	)
	if err != nil {
		return nil, fmt.Errorf("generating query: %w", err)
	}

	var plan queryPlan
	if err := resp.Output(&plan); err != nil {
		return nil, fmt.Errorf("decoding query plan: %w", err)
	}
	if strings.TrimSpace(plan.SQL) == "" {
		return nil, errors.New("model returned an empty query")
	}
	return &plan, nil
}

func (a *Agent) execute(ctx context.Context, query string) ([]string, [][]string, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, nil, err
	}
	bounded := EnforceLimit(query, MaxQueryRows)
	return a.store.Query(ctx, bounded)
}

func (a *Agent) summarize(ctx context.Context, question, query string, cols []string, rows [][]string) (string, error) {
	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(summarySystemPrompt),
		ai.WithPrompt("Question: %s\n\nSQL executed:\n%s\n\nResults:\n%s",
			question, query, renderTable(cols, rows)),
	)
	if err != nil {
		return "", fmt.Errorf("summarizing results: %w", err)
	}
	return resp.Text(), nil
}

// renderTable formats query results as pipe-separated text for the prompt.
func renderTable(cols []string, rows [][]string) string {
	if len(rows) == 0 {
		return "(no rows)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return b.String()
}
