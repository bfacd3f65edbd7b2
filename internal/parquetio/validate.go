package parquetio

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/remitcheck/internal/model"
)

// ValidateSchema checks that a results file carries every required column.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range model.ResultColumns() {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a results file; missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
