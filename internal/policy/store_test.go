package policy

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		cell    string
		all     bool
		empty   bool
		columns []string
	}{
		{cell: "ALL", all: true},
		{cell: " all ", all: true},
		{cell: "", empty: true},
		{cell: "   ", empty: true},
		{cell: "cust_id, cust_name ,phone", columns: []string{"cust_id", "cust_name", "phone"}},
		{cell: "cust_id,,CUST_ID,phone", columns: []string{"cust_id", "phone"}},
		{cell: ",", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			access := ParseCell(tt.cell)
			assert.Equal(t, tt.all, access.IsAll())
			assert.Equal(t, tt.empty, access.IsEmpty())
			assert.Equal(t, tt.columns, access.List())
		})
	}
}

func TestColumnAccessAllows(t *testing.T) {
	assert.True(t, AllColumns().Allows("anything"))
	assert.True(t, Columns("cust_id", "Phone").Allows("PHONE"))
	assert.False(t, Columns("cust_id").Allows("dob"))
	assert.False(t, ColumnAccess{}.Allows("cust_id"))

	assert.Equal(t, "ALL", AllColumns().String())
	assert.Equal(t, "a,b", Columns("a", "b").String())
}

func TestColumnAccessListIsCopy(t *testing.T) {
	access := Columns("a", "b")
	list := access.List()
	list[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, access.List())
}

func TestCanonicalRole(t *testing.T) {
	tests := map[string]string{
		"teller":              "Teller",
		"TELLER":              "Teller",
		"  customer  service": "Customer Service",
		"IT":                  "It",
		"":                    "",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, CanonicalRole(input), input)
	}
}

func TestLoadCSV(t *testing.T) {
	store, err := Load(filepath.Join("testdata", "role_access.csv"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Teller", "Manager", "Auditor", "It", "Customer Service"}, store.Roles())
	assert.Len(t, store.Tables(), 11)

	t.Run("teller", func(t *testing.T) {
		assert.Equal(t, []string{"cust_mast", "acct_mast", "txn_hist", "card_mast"}, store.AllowedTables("teller"))
		assert.True(t, store.AllowedColumns("Teller", "txn_hist").IsAll())
		assert.Equal(t, []string{"cust_id", "cust_name", "phone"}, store.AllowedColumns("Teller", "cust_mast").List())
		assert.True(t, store.AllowedColumns("Teller", "emp_mast").IsEmpty())
	})

	t.Run("customer service", func(t *testing.T) {
		assert.True(t, store.AllowedColumns("customer service", "cust_mast").Allows("address"))
		assert.NotContains(t, store.AllowedTables("Customer Service"), "txn_hist")
	})

	t.Run("manager sees everything", func(t *testing.T) {
		assert.Equal(t, store.Tables(), store.AllowedTables("MANAGER"))
	})

	t.Run("unknown role fails closed", func(t *testing.T) {
		assert.False(t, store.HasRole("Intern"))
		assert.Empty(t, store.AllowedTables("Intern"))
		assert.True(t, store.AllowedColumns("Intern", "cust_mast").IsEmpty())
		assert.True(t, store.Resolve("Intern").IsEmpty())
	})
}

func TestLoadYAML(t *testing.T) {
	store, err := Load(filepath.Join("testdata", "role_access.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Teller", "Manager"}, store.Roles())
	assert.Equal(t, []string{"cust_mast", "acct_mast", "txn_hist", "card_mast"}, store.AllowedTables("Teller"))
	assert.Equal(t, []string{"acct_id", "cust_id", "acct_type", "balance"}, store.AllowedColumns("Teller", "acct_mast").List())
	assert.True(t, store.AllowedColumns("Manager", "cust_mast").IsAll())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "role_access.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestEmptyPolicyNeverAllowsTable(t *testing.T) {
	store, err := Load(filepath.Join("testdata", "role_access.csv"))
	require.NoError(t, err)

	for _, role := range store.Roles() {
		allowed := store.AllowedTables(role)
		for _, table := range store.Tables() {
			if store.AllowedColumns(role, table).IsEmpty() {
				assert.NotContains(t, allowed, table, "%s/%s", role, table)
			}
		}
	}
}

func TestResolveAndExpand(t *testing.T) {
	store := NewStore([]string{"cust_mast", "txn_hist"}, []Rule{
		{Role: "teller", Table: "cust_mast", Access: Columns("cust_id", "phone")},
		{Role: "Teller", Table: "txn_hist", Access: AllColumns()},
		{Role: "Teller", Table: "loan_mast", Access: ColumnAccess{}},
	})

	access := store.Resolve("TELLER")
	assert.Equal(t, "Teller", access.Role())
	assert.Equal(t, []string{"cust_mast", "txn_hist"}, access.Tables())
	assert.True(t, access.HasTable("TXN_HIST"))
	assert.False(t, access.HasTable("loan_mast"))
	assert.Equal(t, []string{"cust_mast", "txn_hist", "loan_mast"}, store.Tables())

	catalog := &types.Catalog{Tables: []types.Table{
		{Name: "txn_hist", Columns: []types.Column{{Name: "txn_id"}, {Name: "amount"}}},
	}}

	if diff := cmp.Diff([]string{"txn_id", "amount"}, access.ExpandedColumns("txn_hist", catalog)); diff != "" {
		t.Errorf("expanded columns mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"cust_id", "phone"}, access.ExpandedColumns("cust_mast", catalog))
	assert.Nil(t, access.ExpandedColumns("loan_mast", catalog))
	assert.Equal(t, []string{"cust_mast", "loan_mast"}, store.UnknownTables(catalog))
}
