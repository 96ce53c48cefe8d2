package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	content := "\ufeffRole,cust_mast,txn_hist\nTeller, \"cust_id,cust_name\",ALL\n,,\nAuditor,ALL\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	table, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Role", "cust_mast", "txn_hist"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Teller", "cust_id,cust_name", "ALL"}, table.Rows[0])
	assert.Equal(t, []string{"Auditor", "ALL", ""}, table.Rows[1])
	assert.Equal(t, 2, table.Index("TXN_HIST"))
	assert.Equal(t, -1, table.Index("emp_mast"))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Table", "Column", "Column Description"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"cust_mast", "cust_id", "Customer identifier"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"cust_mast", "dob"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Read(path)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Customer identifier", Cell(table.Rows[0], table.Index("column description")))
	assert.Equal(t, "", Cell(table.Rows[1], 2))
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read("policy.json")
	assert.ErrorContains(t, err, "unsupported sheet format")

	_, err = Read(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCell(t *testing.T) {
	row := []string{"a", "b"}
	assert.Equal(t, "b", Cell(row, 1))
	assert.Equal(t, "", Cell(row, 2))
	assert.Equal(t, "", Cell(row, -1))
}
