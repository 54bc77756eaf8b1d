package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// maxDatasetFileSize bounds how much tabular data one load accepts.
	maxDatasetFileSize = 64 * 1024 * 1024 // 64MB

	// insertBatchSize rows per transaction commit.
	insertBatchSize = 500
)

var identifierPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// LoadCSV reads a CSV file, infers column types, creates a data table and
// registers the dataset under name. An existing dataset with the same name is
// replaced.
func (s *Store) LoadCSV(ctx context.Context, name, csvPath string) (*Dataset, error) {
	dsName := sanitizeIdentifier(name)
	if dsName == "" {
		return nil, fmt.Errorf("invalid dataset name: %q", name)
	}

	absPath, err := s.paths.Validate(csvPath)
	if err != nil {
		return nil, fmt.Errorf("validating path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > maxDatasetFileSize {
		return nil, fmt.Errorf("file %s (%d bytes) exceeds dataset size limit (%d bytes)",
			filepath.Base(absPath), info.Size(), maxDatasetFileSize)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	header, records, err := readCSV(f)
	if err != nil {
		return nil, err
	}

	columns := inferColumns(header, records)
	tableName := "data_" + dsName

	if err := s.createTable(ctx, tableName, columns); err != nil {
		return nil, err
	}
	if err := s.insertRows(ctx, tableName, columns, records); err != nil {
		return nil, err
	}

	ds := Dataset{
		Name:       dsName,
		SourcePath: absPath,
		TableName:  tableName,
		RowCount:   int64(len(records)),
		Columns:    columns,
		CreatedAt:  time.Now(),
	}
	if err := s.Register(ctx, ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, errors.New("empty header row")
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", len(records)+2, err)
		}
		// Ragged rows are padded or trimmed to the header width.
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		records = append(records, record[:len(header)])
	}
	return header, records, nil
}

// inferColumns picks the narrowest SQLite type each column's values all fit.
func inferColumns(header []string, records [][]string) []Column {
	columns := make([]Column, len(header))
	seen := make(map[string]bool)

	for i, raw := range header {
		name := sanitizeIdentifier(raw)
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		// Suffix until the assigned name is unique, so a later header that
		// happens to spell a generated suffix cannot collide with it.
		base := name
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true

		columns[i] = Column{Name: name, Type: inferType(records, i)}
	}
	return columns
}

func inferType(records [][]string, col int) string {
	isInt, isReal, nonEmpty := true, true, false
	for _, record := range records {
		v := strings.TrimSpace(record[col])
		if v == "" {
			continue
		}
		nonEmpty = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isReal = false
		}
		if !isInt && !isReal {
			break
		}
	}

	switch {
	case !nonEmpty:
		return "TEXT"
	case isInt:
		return "INTEGER"
	case isReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (s *Store) createTable(ctx context.Context, tableName string, columns []Column) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, tableName)); err != nil {
		return fmt.Errorf("dropping previous table: %w", err)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%q %s", col.Name, col.Type)
	}
	stmt := fmt.Sprintf(`CREATE TABLE %q (%s)`, tableName, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}
	return nil
}

func (s *Store) insertRows(ctx context.Context, tableName string, columns []Column, records [][]string) error {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf("%q", col.Name)
		marks[i] = "?"
	}
	insert := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		tableName, strings.Join(names, ", "), strings.Join(marks, ", "))

	for start := 0; start < len(records); start += insertBatchSize {
		end := min(start+insertBatchSize, len(records))

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("preparing insert: %w", err)
		}

		for _, record := range records[start:end] {
			args := make([]any, len(columns))
			for i, col := range columns {
				args[i] = convertValue(record[i], col.Type)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return fmt.Errorf("inserting row: %w", err)
			}
		}

		_ = stmt.Close()
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing batch: %w", err)
		}
	}
	return nil
}

// convertValue maps an empty cell to NULL and parses typed columns so SQLite
// stores real numerics instead of strings.
func convertValue(raw, colType string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// sanitizeIdentifier lowercases and strips anything that is not a safe
// SQLite identifier character.
func sanitizeIdentifier(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = identifierPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "col_" + s
	}
	return s
}
