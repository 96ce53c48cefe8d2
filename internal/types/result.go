package types

// QueryResult is the tabular outcome of one executed statement
type QueryResult struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	Truncated bool            `json:"truncated,omitempty"`
}

// RowCount returns the number of returned rows
func (r *QueryResult) RowCount() int {
	if r == nil {
		return 0
	}

	return len(r.Rows)
}

// ColumnCount returns the number of returned columns
func (r *QueryResult) ColumnCount() int {
	if r == nil {
		return 0
	}

	return len(r.Columns)
}

// IsEmpty reports whether the statement produced no rows
func (r *QueryResult) IsEmpty() bool {
	return r.RowCount() == 0
}

// Records returns rows keyed by column name
func (r *QueryResult) Records() []map[string]interface{} {
	if r == nil {
		return nil
	}

	records := make([]map[string]interface{}, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]interface{}, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}

		records = append(records, record)
	}

	return records
}
