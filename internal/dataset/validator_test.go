package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsReadOnlyQueries(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"plain select", "SELECT * FROM sample_sales_data"},
		{"select with filter", "SELECT Product FROM sample_sales_data WHERE Region = 'North'"},
		{"trailing semicolon", "SELECT count(*) FROM sample_sales_data;"},
		{"cte", "WITH top AS (SELECT * FROM sample_sales_data LIMIT 5) SELECT * FROM top"},
		{"aggregate", "SELECT Category, avg(Unit_Price) FROM sample_sales_data GROUP BY Category"},
		{"offset is not set", "SELECT * FROM sample_sales_data LIMIT 10 OFFSET 5"},
		{"column containing keyword", "SELECT last_update FROM sample_sales_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.sql))
		})
	}
}

func TestValidateRejectsNonReadOnlyStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"well-formed delete", "DELETE FROM sample_sales_data WHERE Order_Status = 'Cancelled'"},
		{"well-formed update", "UPDATE sample_sales_data SET Region = 'South'"},
		{"insert", "INSERT INTO sample_sales_data VALUES (1)"},
		{"drop", "DROP TABLE sample_sales_data"},
		{"create", "CREATE TABLE t AS SELECT 1"},
		{"pragma", "PRAGMA database_list"},
		{"multiple statements", "SELECT 1; DELETE FROM sample_sales_data"},
		{"piggybacked mutation", "SELECT 1; DROP TABLE sample_sales_data;"},
		{"not a query", "EXPLAIN SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.sql))
		})
	}
}
