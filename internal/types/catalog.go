package types

import "strings"

// Catalog is a snapshot of the business database structure
type Catalog struct {
	Tables []Table `json:"tables"`
}

// Table represents a database table
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column represents a database column as reported by PRAGMA table_info
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
	NotNull    bool   `json:"not_null"`
}

// ForeignKey is one column-level reference to another table
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// Table looks a table up by name, case-insensitively
func (c *Catalog) Table(name string) (Table, bool) {
	if c == nil {
		return Table{}, false
	}

	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}

	return Table{}, false
}

// TableNames returns table names in catalog order
func (c *Catalog) TableNames() []string {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}

	return names
}

// ColumnNames returns the columns of table in declaration order, nil when unknown
func (c *Catalog) ColumnNames(table string) []string {
	t, ok := c.Table(table)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		names = append(names, col.Name)
	}

	return names
}

// HasColumn reports whether table declares column, case-insensitively
func (t Table) HasColumn(column string) bool {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, column) {
			return true
		}
	}

	return false
}
