package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogLookup(t *testing.T) {
	catalog := &Catalog{Tables: []Table{
		{Name: "cust_mast", Columns: []Column{{Name: "cust_id", PrimaryKey: true}, {Name: "cust_name"}}},
		{Name: "txn_hist", Columns: []Column{{Name: "txn_id"}}},
	}}

	table, ok := catalog.Table("CUST_MAST")
	assert.True(t, ok)
	assert.True(t, table.HasColumn("Cust_Name"))
	assert.False(t, table.HasColumn("dob"))

	assert.Equal(t, []string{"cust_mast", "txn_hist"}, catalog.TableNames())
	assert.Equal(t, []string{"cust_id", "cust_name"}, catalog.ColumnNames("cust_mast"))
	assert.Nil(t, catalog.ColumnNames("emp_mast"))

	var missing *Catalog
	_, ok = missing.Table("cust_mast")
	assert.False(t, ok)
	assert.Nil(t, missing.TableNames())
}

func TestQueryResult(t *testing.T) {
	result := &QueryResult{
		Columns: []string{"acct_id", "balance"},
		Rows:    [][]interface{}{{int64(1), 10.5}, {int64(2), 0.0}},
	}

	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t, 2, result.ColumnCount())
	assert.False(t, result.IsEmpty())
	assert.Equal(t, map[string]interface{}{"acct_id": int64(2), "balance": 0.0}, result.Records()[1])

	var empty *QueryResult
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.ColumnCount())
}
