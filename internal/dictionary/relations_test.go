package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinPath(t *testing.T) {
	d := loadFixture(t)
	r := d.RelationGraph([]string{"cust_mast", "acct_mast", "txn_hist", "card_mast", "emp_mast"}, nil)

	tests := []struct {
		name     string
		from, to string
		expected []string
	}{
		{"direct", "acct_mast", "cust_mast", []string{"acct_mast", "cust_mast"}},
		{"two hops", "txn_hist", "cust_mast", []string{"txn_hist", "acct_mast", "cust_mast"}},
		{"case insensitive", "CARD_MAST", "txn_hist", []string{"card_mast", "acct_mast", "txn_hist"}},
		{"same table", "cust_mast", "cust_mast", []string{"cust_mast"}},
		// emp_mast only links to tables outside the graph
		{"disconnected", "emp_mast", "cust_mast", nil},
		{"unknown table", "loan_mast", "cust_mast", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.JoinPath(tt.from, tt.to))
		})
	}
}

func TestJoinConditions(t *testing.T) {
	r := loadFixture(t).RelationGraph([]string{"cust_mast", "acct_mast", "txn_hist"}, nil)

	assert.Equal(t, []string{
		"txn_hist.acct_id = acct_mast.acct_id",
		"acct_mast.cust_id = cust_mast.cust_id",
	}, r.JoinConditions([]string{"txn_hist", "acct_mast", "cust_mast"}))

	assert.Nil(t, r.JoinConditions([]string{"txn_hist", "cust_mast"}))
}

func TestConnected(t *testing.T) {
	r := loadFixture(t).RelationGraph([]string{"cust_mast", "acct_mast", "dept_mast"}, nil)

	assert.Equal(t, [][]string{{"cust_mast", "acct_mast"}}, r.Connected())
}

func TestRelationGraphEmptyDictionary(t *testing.T) {
	r := New(nil).RelationGraph([]string{"cust_mast", "acct_mast"}, nil)

	assert.Nil(t, r.JoinPath("cust_mast", "acct_mast"))
	assert.Empty(t, r.Connected())
}

func TestRelationGraphReadableColumns(t *testing.T) {
	tables := []string{"cust_mast", "acct_mast", "txn_hist"}

	// acct_mast.cust_id is hidden, so accounts no longer reach customers
	readable := func(table, column string) bool {
		return !(table == "acct_mast" && column == "cust_id")
	}

	r := loadFixture(t).RelationGraph(tables, readable)

	assert.Nil(t, r.JoinPath("txn_hist", "cust_mast"))
	assert.Equal(t, []string{"txn_hist", "acct_mast"}, r.JoinPath("txn_hist", "acct_mast"))
	assert.Equal(t, [][]string{{"acct_mast", "txn_hist"}}, r.Connected())
}
