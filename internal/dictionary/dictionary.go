// Package dictionary holds the human-written description of the business
// database: one entry per (table, column) with optional key metadata.
package dictionary

import (
	"os"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/sheet"
)

// Entry describes one column of one table
type Entry struct {
	Table            string `json:"table"`
	TableDescription string `json:"table_description,omitempty"`
	Column           string `json:"column"`
	Description      string `json:"description"`
	Type             string `json:"type,omitempty"`
	PrimaryKey       bool   `json:"primary_key,omitempty"`
	ForeignKeyTable  string `json:"foreign_key_table,omitempty"`
	ForeignKeyColumn string `json:"foreign_key_column,omitempty"`
}

// HasForeignKey reports whether the column references another table
func (e Entry) HasForeignKey() bool {
	return e.ForeignKeyTable != "" && e.ForeignKeyColumn != ""
}

// Dictionary is an ordered, read-only list of entries
type Dictionary struct {
	entries []Entry
}

// New builds a dictionary, dropping entries without a table or column
func New(entries []Entry) *Dictionary {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Table == "" || e.Column == "" {
			continue
		}

		kept = append(kept, e)
	}

	return &Dictionary{entries: kept}
}

// Load reads a dictionary from .xlsx or .csv. A missing file is not fatal:
// the result is an empty dictionary and a warning is logged.
func Load(path string) (*Dictionary, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.Warnf("data dictionary not found at %s, continuing without descriptions", path)
			return New(nil), nil
		}

		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to stat data dictionary")
	}

	table, err := sheet.Read(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to read data dictionary")
	}

	idx := columnIndexes{
		table:     table.Index("Table", "Table Name"),
		tableDesc: table.Index("Table Description"),
		column:    table.Index("Column", "Column Name", "ColumnName"),
		desc:      table.Index("Column Description", "Description"),
		typ:       table.Index("Type", "Data Type"),
		pk:        table.Index("PK", "Primary Key"),
		fkTable:   table.Index("Foreign Key Table"),
		fkColumn:  table.Index("Foreign Key Column"),
	}

	if idx.table < 0 || idx.column < 0 {
		return nil, errors.Newf(errors.ErrTypeConfig, "data dictionary %s needs Table and Column headers", path).
			WithSuggestion("Expected headers: Table, Table Description, Column, Column Description, Type, PK, Foreign Key Table, Foreign Key Column")
	}

	entries := make([]Entry, 0, len(table.Rows))
	for _, row := range table.Rows {
		entries = append(entries, idx.entry(row))
	}

	d := New(entries)
	logging.Debugf("loaded %d data dictionary entries from %s", d.Len(), path)

	return d, nil
}

type columnIndexes struct {
	table, tableDesc, column, desc, typ, pk, fkTable, fkColumn int
}

func (c columnIndexes) entry(row []string) Entry {
	return Entry{
		Table:            sheet.Cell(row, c.table),
		TableDescription: sheet.Cell(row, c.tableDesc),
		Column:           sheet.Cell(row, c.column),
		Description:      sheet.Cell(row, c.desc),
		Type:             sheet.Cell(row, c.typ),
		PrimaryKey:       parseFlag(sheet.Cell(row, c.pk)),
		ForeignKeyTable:  sheet.Cell(row, c.fkTable),
		ForeignKeyColumn: sheet.Cell(row, c.fkColumn),
	}
}

func parseFlag(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "✔", "✓", "y", "yes", "true", "1", "x":
		return true
	default:
		return false
	}
}

// Len returns the number of entries
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}

	return len(d.entries)
}

// Entries returns a copy of every entry in file order
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}

	out := make([]Entry, len(d.entries))
	copy(out, d.entries)

	return out
}

// Describe returns the description of the first entry whose column matches
func (d *Dictionary) Describe(column string) (string, bool) {
	if d == nil {
		return "", false
	}

	for _, e := range d.entries {
		if strings.EqualFold(e.Column, column) && e.Description != "" {
			return e.Description, true
		}
	}

	return "", false
}

// TableDescription returns the description recorded for table, if any
func (d *Dictionary) TableDescription(table string) string {
	if d == nil {
		return ""
	}

	for _, e := range d.entries {
		if strings.EqualFold(e.Table, table) && e.TableDescription != "" {
			return e.TableDescription
		}
	}

	return ""
}

// ForeignKeys returns the entries of table that reference another table
func (d *Dictionary) ForeignKeys(table string) []Entry {
	if d == nil {
		return nil
	}

	var fks []Entry

	for _, e := range d.entries {
		if strings.EqualFold(e.Table, table) && e.HasForeignKey() {
			fks = append(fks, e)
		}
	}

	return fks
}
