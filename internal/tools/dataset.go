package tools

import (
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/dataset"
	"github.com/insightlab/insighthub/internal/log"
)

// Genkit tool names for dataset operations.
const (
	ListDatasetsName = "list_datasets"
	QueryDatasetName = "query_dataset"
)

// DatasetQueryInput is the input schema for query_dataset.
type DatasetQueryInput struct {
	SQL string `json:"sql" jsonschema_description:"A single SQLite SELECT statement over the data_* tables"`
}

// DatasetQueryOutput is the output schema for query_dataset.
type DatasetQueryOutput struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// DatasetInfo describes one loaded dataset to the model.
type DatasetInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"rowCount"`
	Schema   string `json:"schema"`
}

// DatasetListOutput is the output schema for list_datasets.
type DatasetListOutput struct {
	Datasets []DatasetInfo `json:"datasets"`
}

// DatasetToolset lets the chat agent inspect and query loaded datasets. All
// queries go through the same read-only guard as the data query agent.
type DatasetToolset struct {
	store  *dataset.Store
	logger log.Logger
}

// NewDatasetToolset creates the dataset toolset.
func NewDatasetToolset(store *dataset.Store, logger log.Logger) (*DatasetToolset, error) {
	if store == nil {
		return nil, errors.New("dataset store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &DatasetToolset{store: store, logger: logger}, nil
}

// Register defines the toolset's tools with Genkit.
func (dt *DatasetToolset) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, ListDatasetsName,
			"List the tabular datasets currently loaded, with their table names, "+
				"row counts and column schemas. Call this before query_dataset to "+
				"learn what tables and columns exist.",
			dt.List),
		genkit.DefineTool(g, QueryDatasetName,
			"Run a read-only SQL SELECT against the loaded datasets (SQLite syntax, "+
				"tables are named data_<dataset>). Only SELECT is allowed; results "+
				fmt.Sprintf("are capped at %d rows.", dataset.MaxQueryRows),
			dt.Query),
	}
}

// List handles the list_datasets tool call.
func (dt *DatasetToolset) List(ctx *ai.ToolContext, _ struct{}) (DatasetListOutput, error) {
	all, err := dt.store.List(ctx)
	if err != nil {
		return DatasetListOutput{}, fmt.Errorf("listing datasets: %w", err)
	}

	infos := make([]DatasetInfo, len(all))
	for i, ds := range all {
		infos[i] = DatasetInfo{
			Name:     ds.Name,
			RowCount: ds.RowCount,
			Schema:   ds.SchemaDescription(),
		}
	}
	return DatasetListOutput{Datasets: infos}, nil
}

// Query handles the query_dataset tool call.
func (dt *DatasetToolset) Query(ctx *ai.ToolContext, input DatasetQueryInput) (DatasetQueryOutput, error) {
	if input.SQL == "" {
		return DatasetQueryOutput{}, errors.New("sql is required")
	}
	if err := dataset.ValidateQuery(input.SQL); err != nil {
		return DatasetQueryOutput{}, err
	}

	bounded := dataset.EnforceLimit(input.SQL, dataset.MaxQueryRows)
	cols, rows, err := dt.store.Query(ctx, bounded)
	if err != nil {
		return DatasetQueryOutput{}, fmt.Errorf("querying dataset: %w", err)
	}

	dt.logger.Debug("dataset query tool called", "rows", len(rows))
	return DatasetQueryOutput{Columns: cols, Rows: rows}, nil
}
