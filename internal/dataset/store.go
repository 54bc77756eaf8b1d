package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/security"
)

// Column describes one column of a registered dataset.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"` // INTEGER, REAL or TEXT
}

// Dataset is the registry entry for one loaded table.
type Dataset struct {
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path"`
	TableName  string    `json:"table_name"`
	RowCount   int64     `json:"row_count"`
	Columns    []Column  `json:"columns"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrDatasetNotFound is returned when a named dataset is not registered.
var ErrDatasetNotFound = errors.New("dataset not found")

// Store manages the dataset registry and the data tables behind it.
type Store struct {
	db     *sql.DB
	paths  *security.Path
	logger log.Logger
}

// NewStore creates a dataset store over an open SQLite database. paths
// bounds which files LoadCSV may read; nil restricts loads to the working
// directory.
func NewStore(db *sql.DB, paths *security.Path, logger log.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if paths == nil {
		var err error
		paths, err = security.NewPath(nil)
		if err != nil {
			return nil, fmt.Errorf("creating path validator: %w", err)
		}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, paths: paths, logger: logger}, nil
}

// Register records a dataset in the registry, replacing any previous entry
// with the same name.
func (s *Store) Register(ctx context.Context, ds Dataset) error {
	schemaJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasets (name, source_path, table_name, row_count, schema_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			source_path = excluded.source_path,
			table_name = excluded.table_name,
			row_count = excluded.row_count,
			schema_json = excluded.schema_json,
			created_at = excluded.created_at`,
		ds.Name, ds.SourcePath, ds.TableName, ds.RowCount, string(schemaJSON), ds.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("registering dataset %s: %w", ds.Name, err)
	}

	s.logger.Info("dataset registered", "name", ds.Name, "rows", ds.RowCount)
	return nil
}

// Get returns one dataset by name.
func (s *Store) Get(ctx context.Context, name string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, source_path, table_name, row_count, schema_json, created_at
		FROM datasets WHERE name = ?`, name)

	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting dataset %s: %w", name, err)
	}
	return ds, nil
}

// List returns all registered datasets ordered by name.
func (s *Store) List(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, source_path, table_name, row_count, schema_json, created_at
		FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dataset: %w", err)
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating datasets: %w", err)
	}
	return out, nil
}

// Drop removes a dataset and its data table.
func (s *Store) Drop(ctx context.Context, name string) error {
	ds, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	// Table names come from sanitizeIdentifier so quoting them is safe.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, ds.TableName)); err != nil {
		return fmt.Errorf("dropping table %s: %w", ds.TableName, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deregistering dataset %s: %w", name, err)
	}

	s.logger.Info("dataset dropped", "name", name)
	return nil
}

// Query runs a validated read-only query and returns column names plus rows
// rendered as strings.
func (s *Store) Query(ctx context.Context, query string) ([]string, [][]string, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("reading columns: %w", err)
	}

	var out [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scanning row: %w", err)
		}

		rendered := make([]string, len(cols))
		for i, v := range values {
			rendered[i] = renderValue(v)
		}
		out = append(out, rendered)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating rows: %w", err)
	}
	return cols, out, nil
}

// SchemaDescription renders a dataset's schema for inclusion in a prompt.
func (ds *Dataset) SchemaDescription() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %q (%d rows):\n", ds.TableName, ds.RowCount)
	for _, col := range ds.Columns {
		fmt.Fprintf(&b, "  - %s %s\n", col.Name, col.Type)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var ds Dataset
	var schemaJSON string
	if err := row.Scan(&ds.Name, &ds.SourcePath, &ds.TableName, &ds.RowCount, &schemaJSON, &ds.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(schemaJSON), &ds.Columns); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	return &ds, nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
