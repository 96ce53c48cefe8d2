package policy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kyleking/askdb/internal/types"
)

// Rule is one cell of the policy input: role x table -> column access
type Rule struct {
	Role   string
	Table  string
	Access ColumnAccess
}

// Store answers role -> table -> column questions. It is immutable after
// NewStore and safe for concurrent readers.
type Store struct {
	tables []string
	roles  []string
	rules  map[string]map[string]ColumnAccess
}

// NewStore builds a store. tables fixes the table order; tables that only
// appear in rules are appended in first-seen order.
func NewStore(tables []string, rules []Rule) *Store {
	s := &Store{rules: make(map[string]map[string]ColumnAccess)}

	known := make(map[string]bool)
	addTable := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || known[strings.ToLower(name)] {
			return
		}

		known[strings.ToLower(name)] = true
		s.tables = append(s.tables, name)
	}

	for _, t := range tables {
		addTable(t)
	}

	for _, r := range rules {
		role := CanonicalRole(r.Role)
		if role == "" {
			continue
		}

		addTable(r.Table)

		byTable, ok := s.rules[role]
		if !ok {
			byTable = make(map[string]ColumnAccess)
			s.rules[role] = byTable
			s.roles = append(s.roles, role)
		}

		byTable[strings.ToLower(strings.TrimSpace(r.Table))] = r.Access
	}

	return s
}

// CanonicalRole folds a role name to its display form: trimmed, single
// spaced, title case. "customer  SERVICE" becomes "Customer Service".
func CanonicalRole(role string) string {
	role = strings.Join(strings.Fields(role), " ")
	if role == "" {
		return ""
	}

	return cases.Title(language.English).String(strings.ToLower(role))
}

// Roles returns the canonical role names in input order
func (s *Store) Roles() []string {
	out := make([]string, len(s.roles))
	copy(out, s.roles)

	return out
}

// Tables returns every table the policy knows about
func (s *Store) Tables() []string {
	out := make([]string, len(s.tables))
	copy(out, s.tables)

	return out
}

// HasRole reports whether the policy defines role
func (s *Store) HasRole(role string) bool {
	_, ok := s.rules[CanonicalRole(role)]
	return ok
}

// AllowedTables returns the tables role may read, in policy order.
// Unknown roles get nothing.
func (s *Store) AllowedTables(role string) []string {
	return s.Resolve(role).Tables()
}

// AllowedColumns returns the column access of role on table. Missing roles,
// tables and blank cells all mean no access.
func (s *Store) AllowedColumns(role, table string) ColumnAccess {
	byTable, ok := s.rules[CanonicalRole(role)]
	if !ok {
		return ColumnAccess{}
	}

	return byTable[strings.ToLower(strings.TrimSpace(table))]
}

// Resolve returns the role's access view
func (s *Store) Resolve(role string) Access {
	canonical := CanonicalRole(role)

	grants := make([]Grant, 0, len(s.tables))
	for _, table := range s.tables {
		grants = append(grants, Grant{Table: table, Columns: s.AllowedColumns(canonical, table)})
	}

	return NewAccess(canonical, grants...)
}

// UnknownTables lists policy tables the catalog does not contain
func (s *Store) UnknownTables(catalog *types.Catalog) []string {
	var missing []string

	for _, table := range s.tables {
		if _, ok := catalog.Table(table); !ok {
			missing = append(missing, table)
		}
	}

	return missing
}
