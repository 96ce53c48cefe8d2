package policy

import (
	"strings"

	"github.com/kyleking/askdb/internal/types"
)

const allKeyword = "ALL"

// ColumnAccess is what a role may read from one table: every column, or an
// explicit ordered set. The zero value is an empty set, meaning no access.
type ColumnAccess struct {
	all     bool
	columns []string
}

// AllColumns grants every column of a table
func AllColumns() ColumnAccess {
	return ColumnAccess{all: true}
}

// Columns grants the given columns. Blank names and case-insensitive duplicates are dropped.
func Columns(names ...string) ColumnAccess {
	seen := make(map[string]bool, len(names))
	cols := make([]string, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)

		if name == "" || seen[key] {
			continue
		}

		seen[key] = true
		cols = append(cols, name)
	}

	return ColumnAccess{columns: cols}
}

// ParseCell reads a policy cell: "ALL", a comma separated column list, or blank
func ParseCell(cell string) ColumnAccess {
	cell = strings.TrimSpace(cell)
	if strings.EqualFold(cell, allKeyword) {
		return AllColumns()
	}

	if cell == "" {
		return ColumnAccess{}
	}

	return Columns(strings.Split(cell, ",")...)
}

// IsAll reports whether every column is granted
func (c ColumnAccess) IsAll() bool {
	return c.all
}

// IsEmpty reports whether nothing is granted
func (c ColumnAccess) IsEmpty() bool {
	return !c.all && len(c.columns) == 0
}

// List returns the explicit column set. It is nil for AllColumns.
func (c ColumnAccess) List() []string {
	if c.all || len(c.columns) == 0 {
		return nil
	}

	out := make([]string, len(c.columns))
	copy(out, c.columns)

	return out
}

// Allows reports whether column may be read, case-insensitively
func (c ColumnAccess) Allows(column string) bool {
	if c.all {
		return true
	}

	for _, col := range c.columns {
		if strings.EqualFold(col, column) {
			return true
		}
	}

	return false
}

func (c ColumnAccess) String() string {
	if c.all {
		return allKeyword
	}

	return strings.Join(c.columns, ",")
}

// Grant is one allowed table and its column access
type Grant struct {
	Table   string
	Columns ColumnAccess
}

// Access is the resolved, read-only view of one role's policy
type Access struct {
	role   string
	grants []Grant
}

// NewAccess builds an access view from grants, dropping empty ones
func NewAccess(role string, grants ...Grant) Access {
	kept := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if !g.Columns.IsEmpty() {
			kept = append(kept, g)
		}
	}

	return Access{role: role, grants: kept}
}

// Role returns the canonical role name
func (a Access) Role() string {
	return a.role
}

// Tables returns the allowed tables in policy order
func (a Access) Tables() []string {
	tables := make([]string, 0, len(a.grants))
	for _, g := range a.grants {
		tables = append(tables, g.Table)
	}

	return tables
}

// Grants returns a copy of the allowed grants in policy order
func (a Access) Grants() []Grant {
	out := make([]Grant, len(a.grants))
	copy(out, a.grants)

	return out
}

// IsEmpty reports whether the role may read nothing at all
func (a Access) IsEmpty() bool {
	return len(a.grants) == 0
}

// HasTable reports whether table is allowed, case-insensitively
func (a Access) HasTable(table string) bool {
	_, ok := a.lookup(table)
	return ok
}

// Columns returns the column access for table; empty when the table is not allowed
func (a Access) Columns(table string) ColumnAccess {
	g, _ := a.lookup(table)
	return g.Columns
}

// ExpandedColumns lists the concrete readable columns of table. AllColumns
// resolves to the catalog's declared columns, which may be nil when unknown.
func (a Access) ExpandedColumns(table string, catalog *types.Catalog) []string {
	access := a.Columns(table)
	if access.IsAll() {
		return catalog.ColumnNames(table)
	}

	return access.List()
}

func (a Access) lookup(table string) (Grant, bool) {
	for _, g := range a.grants {
		if strings.EqualFold(g.Table, table) {
			return g, true
		}
	}

	return Grant{}, false
}
