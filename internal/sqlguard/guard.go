// Package sqlguard decides whether a generated statement may run for a
// role. IsAuthorized is the coarse filter that picks between candidates;
// Validate is the stricter gate in front of the database.
package sqlguard

import (
	"regexp"
	"strings"

	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

var pragmaStatement = regexp.MustCompile(
	`(?is)^\s*pragma\s+(table_info|foreign_key_list|index_list)\s*\(\s*['"]?\w+['"]?\s*\)\s*;?\s*$`,
)

// Guard combines the textual checks with the parser stage. It is read-only
// after construction and safe for concurrent use.
type Guard struct {
	catalog       *types.Catalog
	strict        bool
	genericSelect bool
}

// Option configures a Guard
type Option func(*Guard)

// WithStrictParse toggles the parser stage of Validate
func WithStrictParse(strict bool) Option {
	return func(g *Guard) {
		g.strict = strict
	}
}

// WithLegacyGenericSelect makes IsAuthorized accept any "select ... from"
// statement for a role that has at least one table
func WithLegacyGenericSelect(enabled bool) Option {
	return func(g *Guard) {
		g.genericSelect = enabled
	}
}

// New creates a guard that resolves columns against catalog, which may be nil
func New(catalog *types.Catalog, opts ...Option) *Guard {
	g := &Guard{catalog: catalog, strict: true}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// IsAuthorized applies the candidate filter
func (g *Guard) IsAuthorized(sql string, access policy.Access) bool {
	if g.genericSelect {
		return legacyAuthorized(sql, access)
	}

	return IsAuthorized(sql, access)
}

// Validate returns the verdict for sql. Without strict parsing it is
// ValidateText. With it, the introspection exemption only covers real
// catalog reads and every accepted statement must also parse as a single
// read-only SELECT over allowed tables and columns.
func (g *Guard) Validate(sql string, access policy.Access) Verdict {
	if !g.strict {
		return ValidateText(sql, access)
	}

	if intervalKeyword.MatchString(sql) {
		return rejectDateSyntax()
	}

	if mentionsIntrospection(sql) && g.isIntrospection(sql) {
		return Accept()
	}

	if v := checkTablesAndColumns(sql, access); !v.Accepted {
		return v
	}

	return g.checkParsed(sql, access)
}

func (g *Guard) isIntrospection(sql string) bool {
	if pragmaStatement.MatchString(sql) {
		return true
	}

	a, err := Analyze(sql)
	if err != nil {
		return false
	}

	return a.Statements == 1 && a.ReadOnly && a.OnlyCatalogTables()
}

func (g *Guard) checkParsed(sql string, access policy.Access) Verdict {
	a, err := Analyze(sql)
	if err != nil {
		logging.Debugf("statement did not parse: %v", err)
		return rejectUnparseable(err.Error())
	}

	switch {
	case a.Statements == 0:
		return rejectUnparseable("empty statement")
	case a.Statements > 1:
		return rejectMultiple()
	case !a.ReadOnly:
		return rejectNotReadOnly()
	}

	tables := a.Tables()
	for _, t := range tables {
		if !access.HasTable(t) {
			return rejectTable(t)
		}
	}

	for i, ref := range a.Columns {
		for _, table := range g.resolve(a, ref, a.columnScopes[i], tables) {
			if !access.Columns(table).Allows(ref.Name) {
				return rejectColumn(ref.Name, table)
			}
		}
	}

	for _, star := range a.Stars {
		for _, table := range g.starTables(star) {
			if v := g.checkStar(table, access); !v.Accepted {
				return v
			}
		}
	}

	return Accept()
}

// qualified resolves a table or alias as seen from s. A qualifier bound
// nowhere but naming a catalog table is taken to mean that table.
func (g *Guard) qualified(qualifier string, s *scope) []string {
	if tables, ok := s.lookup(qualifier); ok {
		return tables
	}

	if t, ok := g.catalog.Table(qualifier); ok {
		return []string{t.Name}
	}

	return nil
}

// resolve finds the base tables a column reference may read. Qualified
// references follow the alias through the enclosing scopes; unqualified
// ones match every referenced table whose catalog entry has the column.
// References that resolve to nothing are left for the database to reject.
func (g *Guard) resolve(a *Analysis, ref ColumnRef, s *scope, tables []string) []string {
	if ref.Qualifier != "" {
		return g.qualified(ref.Qualifier, s)
	}

	var (
		matches []string
		unknown bool
	)

	for _, t := range tables {
		table, ok := g.catalog.Table(t)
		if !ok {
			unknown = true
			continue
		}

		if table.HasColumn(ref.Name) {
			matches = append(matches, t)
		}
	}

	if len(matches) > 0 || !unknown || a.IsOutputName(ref.Name) {
		return matches
	}

	if len(tables) == 1 {
		return tables
	}

	return nil
}

func (g *Guard) starTables(star StarRef) []string {
	if star.Qualifier != "" {
		return g.qualified(star.Qualifier, star.from)
	}

	var tables []string

	for _, r := range star.Scope {
		if r.Derived || isCatalogTable(strings.ToLower(r.Name)) {
			continue
		}

		tables = append(tables, r.Name)
	}

	return tables
}

// checkStar treats '*' on a column-restricted table as reading every
// catalog column; with no catalog entry it is rejected outright
func (g *Guard) checkStar(table string, access policy.Access) Verdict {
	cols := access.Columns(table)
	if cols.IsAll() {
		return Accept()
	}

	known := g.catalog.ColumnNames(table)
	if len(known) == 0 {
		return rejectColumn("*", table)
	}

	for _, c := range known {
		if !cols.Allows(c) {
			return rejectColumn(c, table)
		}
	}

	return Accept()
}
