package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kyleking/askdb/internal/errors"
)

func loadFixture(t *testing.T) *Dictionary {
	t.Helper()

	d, err := Load(filepath.Join("testdata", "data_dictionary.csv"))
	require.NoError(t, err)

	return d
}

func TestLoadCSV(t *testing.T) {
	d := loadFixture(t)

	assert.Equal(t, 47, d.Len())

	first := d.Entries()[0]
	assert.Equal(t, Entry{
		Table:            "cust_mast",
		TableDescription: "Customer master table",
		Column:           "cust_id",
		Description:      "Customer ID",
		Type:             "INTEGER",
		PrimaryKey:       true,
	}, first)

	t.Run("primary key flags", func(t *testing.T) {
		pks := map[string]bool{}
		for _, e := range d.Entries() {
			if e.PrimaryKey {
				pks[e.Table] = true
			}
		}

		assert.Len(t, pks, 11)
	})

	t.Run("foreign keys", func(t *testing.T) {
		fks := d.ForeignKeys("ACCT_MAST")
		require.Len(t, fks, 2)
		assert.Equal(t, "cust_mast", fks[0].ForeignKeyTable)
		assert.Equal(t, "branch_id", fks[1].ForeignKeyColumn)
		assert.Empty(t, d.ForeignKeys("cust_mast"))
	})
}

func TestLoadMissingFile(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "data_dictionary.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())

	_, ok := d.Describe("cust_id")
	assert.False(t, ok)
}

func TestLoadMissingHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Notes\na,b\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_dictionary.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Table", "Column", "Column Description", "Primary Key"},
		{"branch_mast", "branch_id", "Branch ID", "Yes"},
		{"branch_mast", "location", "Branch Location", "No"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	d, err := Load(path)
	require.NoError(t, err)

	entries := d.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].PrimaryKey)
	assert.False(t, entries[1].PrimaryKey)
	assert.Equal(t, "Branch Location", entries[1].Description)
}

func TestDescribe(t *testing.T) {
	d := loadFixture(t)

	tests := []struct {
		column   string
		expected string
		found    bool
	}{
		{"cust_id", "Customer ID", true},
		{"BALANCE", "Account Balance", true},
		{"amount", "Transaction Amount", true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			desc, ok := d.Describe(tt.column)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, desc)
		})
	}

	assert.Equal(t, "Transaction history", d.TableDescription("txn_hist"))
	assert.Empty(t, d.TableDescription("users"))
}

func TestNewDropsIncompleteEntries(t *testing.T) {
	d := New([]Entry{
		{Table: "cust_mast", Column: "cust_id"},
		{Table: "", Column: "orphan"},
		{Table: "cust_mast"},
	})

	assert.Equal(t, 1, d.Len())
}

func TestNilDictionary(t *testing.T) {
	var d *Dictionary

	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.Entries())
	assert.Nil(t, d.ForeignKeys("cust_mast"))
	assert.Empty(t, d.TableDescription("cust_mast"))
}

func TestParseFlag(t *testing.T) {
	for _, cell := range []string{"✔", "Y", "yes", "TRUE", "1"} {
		assert.True(t, parseFlag(cell), cell)
	}

	for _, cell := range []string{"", "No", "0", "false"} {
		assert.False(t, parseFlag(cell), cell)
	}
}
