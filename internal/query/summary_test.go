package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/types"
)

func TestSummarize(t *testing.T) {
	dict := dictionary.New([]dictionary.Entry{
		{Table: "cust_mast", Column: "cust_id", Description: "Customer ID"},
		{Table: "cust_mast", Column: "cust_name", Description: "Customer Name"},
		{Table: "acct_mast", Column: "cust_id", Description: "Owning customer"},
	})

	tests := []struct {
		name      string
		result    *types.QueryResult
		describer Describer
		want      string
	}{
		{
			name:   "nil result",
			result: nil,
			want:   NoDataMessage,
		},
		{
			name:      "no rows",
			result:    &types.QueryResult{Columns: []string{"cust_id"}, Rows: [][]interface{}{}},
			describer: dict,
			want:      "I couldn't find any data matching your query.",
		},
		{
			name: "described and bare columns",
			result: &types.QueryResult{
				Columns: []string{"cust_id", "cust_name", "total"},
				Rows:    [][]interface{}{{1, "a", 10}, {2, "b", 20}},
			},
			describer: dict,
			want: "I found 2 record(s) with 3 field(s) based on your query.\n" +
				"Columns: cust_id (Customer ID), cust_name (Customer Name), total",
		},
		{
			name: "no dictionary",
			result: &types.QueryResult{
				Columns: []string{"cust_id"},
				Rows:    [][]interface{}{{1}},
			},
			want: "I found 1 record(s) with 1 field(s) based on your query.\nColumns: cust_id",
		},
		{
			name: "empty dictionary",
			result: &types.QueryResult{
				Columns: []string{"cust_id"},
				Rows:    [][]interface{}{{1}},
			},
			describer: dictionary.New(nil),
			want:      "I found 1 record(s) with 1 field(s) based on your query.\nColumns: cust_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.result, tt.describer)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Summarize(tt.result, tt.describer))
		})
	}
}
