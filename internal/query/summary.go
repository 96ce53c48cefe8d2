package query

import (
	"fmt"
	"strings"

	"github.com/kyleking/askdb/internal/types"
)

// NoDataMessage is the summary of an empty result
const NoDataMessage = "I couldn't find any data matching your query."

// Describer looks up a column's data dictionary description
type Describer interface {
	Describe(column string) (string, bool)
}

// Summarize narrates a result: its row and column counts, then each column
// with its description when the dictionary has one. It depends only on the
// result and the dictionary.
func Summarize(result *types.QueryResult, describer Describer) string {
	if result.IsEmpty() {
		return NoDataMessage
	}

	cols := make([]string, 0, result.ColumnCount())

	for _, col := range result.Columns {
		if describer != nil {
			if desc, ok := describer.Describe(col); ok && desc != "" {
				cols = append(cols, fmt.Sprintf("%s (%s)", col, desc))
				continue
			}
		}

		cols = append(cols, col)
	}

	return fmt.Sprintf("I found %d record(s) with %d field(s) based on your query.\nColumns: %s",
		result.RowCount(), result.ColumnCount(), strings.Join(cols, ", "))
}
