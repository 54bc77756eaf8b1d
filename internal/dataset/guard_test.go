package dataset

import (
	"errors"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{
			name:  "simple select",
			query: "SELECT * FROM data_sales",
		},
		{
			name:  "select with trailing semicolon",
			query: "SELECT count(*) FROM data_sales;",
		},
		{
			name:  "cte select",
			query: "WITH t AS (SELECT region FROM data_sales) SELECT * FROM t",
		},
		{
			name:  "column name containing forbidden substring",
			query: "SELECT created_at, updated_count FROM data_sales",
		},
		{
			name:    "empty",
			query:   "  ",
			wantErr: true,
		},
		{
			name:    "insert",
			query:   "INSERT INTO data_sales VALUES (1)",
			wantErr: true,
		},
		{
			name:    "delete",
			query:   "DELETE FROM data_sales",
			wantErr: true,
		},
		{
			name:    "drop table",
			query:   "DROP TABLE data_sales",
			wantErr: true,
		},
		{
			name:    "pragma",
			query:   "PRAGMA table_info(data_sales)",
			wantErr: true,
		},
		{
			name:    "stacked statements",
			query:   "SELECT 1; DROP TABLE data_sales",
			wantErr: true,
		},
		{
			name:    "mutation hidden in select",
			query:   "SELECT * FROM data_sales WHERE id IN (DELETE FROM data_sales)",
			wantErr: true,
		},
		{
			name:    "attach database",
			query:   "ATTACH DATABASE '/tmp/x.db' AS other",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafeQuery) {
					t.Errorf("ValidateQuery(%q) = %v, want ErrUnsafeQuery", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateQuery(%q) unexpected error: %v", tt.query, err)
			}
		})
	}
}

func TestEnforceLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		max   int
		want  string
	}{
		{
			name:  "appends missing limit",
			query: "SELECT * FROM data_sales",
			max:   100,
			want:  "SELECT * FROM data_sales LIMIT 100",
		},
		{
			name:  "keeps smaller limit",
			query: "SELECT * FROM data_sales LIMIT 10",
			max:   100,
			want:  "SELECT * FROM data_sales LIMIT 10",
		},
		{
			name:  "tightens oversized limit",
			query: "SELECT * FROM data_sales LIMIT 5000",
			max:   100,
			want:  "SELECT * FROM data_sales LIMIT 100",
		},
		{
			name:  "strips trailing semicolon",
			query: "SELECT * FROM data_sales;",
			max:   50,
			want:  "SELECT * FROM data_sales LIMIT 50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnforceLimit(tt.query, tt.max)
			if got != tt.want {
				t.Errorf("EnforceLimit(%q, %d) = %q, want %q", tt.query, tt.max, got, tt.want)
			}
		})
	}
}
