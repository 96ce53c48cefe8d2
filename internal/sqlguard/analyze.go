package sqlguard

import (
	"slices"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Relation is a table named in a FROM or JOIN clause. Derived relations
// name a CTE visible from the SELECT they appear in.
type Relation struct {
	Name    string
	Alias   string
	Derived bool
}

// ColumnRef is a column reference. Qualifier is the table or alias before
// the last dot, empty when unqualified.
type ColumnRef struct {
	Qualifier string
	Name      string
}

// StarRef is a '*' or 't.*' in a select list, with the relations of the
// FROM clause it expands over
type StarRef struct {
	Qualifier string
	Scope     []Relation

	from *scope
}

// Analysis is what the parser found in a statement
type Analysis struct {
	Statements int
	ReadOnly   bool
	Relations  []Relation
	Columns    []ColumnRef
	Stars      []StarRef

	// columnScopes[i] is the SELECT scope Columns[i] appears in
	columnScopes []*scope
	outputs      map[string]bool
}

// scope holds the names one SELECT binds: its FROM items and the CTEs
// of its WITH clause. Lookups fall through to the enclosing SELECT.
type scope struct {
	parent   *scope
	ctes     map[string]bool
	bindings map[string][]string
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:   parent,
		ctes:     make(map[string]bool),
		bindings: make(map[string][]string),
	}
}

// bind records that name refers to table; an empty table is a derived
// relation whose columns are checked where it is defined
func (s *scope) bind(name, table string) {
	key := strings.ToLower(name)
	for _, t := range s.bindings[key] {
		if strings.EqualFold(t, table) {
			return
		}
	}

	s.bindings[key] = append(s.bindings[key], table)
}

// lookup returns every base table name is bound to in s and the scopes
// enclosing it. A name bound differently at several levels yields all of
// them, so a shadowed alias is checked against each table it could mean.
func (s *scope) lookup(name string) ([]string, bool) {
	key := strings.ToLower(name)

	var (
		tables []string
		found  bool
	)

	for cur := s; cur != nil; cur = cur.parent {
		bound, ok := cur.bindings[key]
		if !ok {
			continue
		}

		found = true

		for _, t := range bound {
			if t != "" && !containsFold(tables, t) {
				tables = append(tables, t)
			}
		}
	}

	return tables, found
}

func (s *scope) isCTE(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.ctes[name] {
			return true
		}
	}

	return false
}

// Analyze parses sql and collects every relation and column reference,
// including those inside subqueries and CTEs. Backtick quoted identifiers
// are accepted.
func Analyze(sql string) (*Analysis, error) {
	result, err := pg_query.Parse(normalizeQuotes(sql))
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Statements: len(result.GetStmts()),
		ReadOnly:   true,
		outputs:    make(map[string]bool),
	}

	for _, raw := range result.GetStmts() {
		sel := raw.GetStmt().GetSelectStmt()
		if sel == nil || sel.GetIntoClause() != nil {
			a.ReadOnly = false
		}
	}

	a.walk(result.ProtoReflect(), newScope(nil))

	return a, nil
}

// Tables returns the distinct base tables referenced, in order of first
// appearance. CTE references and sqlite_* catalog tables are not base
// tables.
func (a *Analysis) Tables() []string {
	var tables []string

	for _, r := range a.Relations {
		if r.Derived || isCatalogTable(strings.ToLower(r.Name)) || containsFold(tables, r.Name) {
			continue
		}

		tables = append(tables, r.Name)
	}

	return tables
}

// IsOutputName reports whether name is a select-list alias
func (a *Analysis) IsOutputName(name string) bool {
	return a.outputs[strings.ToLower(name)]
}

// OnlyCatalogTables reports whether every relation is a sqlite_* catalog table
func (a *Analysis) OnlyCatalogTables() bool {
	if len(a.Relations) == 0 {
		return false
	}

	for _, r := range a.Relations {
		if !isCatalogTable(strings.ToLower(r.Name)) {
			return false
		}
	}

	return true
}

// walk visits m and every message reachable from it, depth first, with s
// the innermost SELECT scope
func (a *Analysis) walk(m protoreflect.Message, s *scope) {
	if !m.IsValid() {
		return
	}

	switch n := m.Interface().(type) {
	case *pg_query.SelectStmt:
		a.selectStmt(n, s)
		return
	case *pg_query.WithClause:
		a.withClause(n, s)
		return
	case *pg_query.RangeVar:
		a.addRelation(n, s)
	case *pg_query.ColumnRef:
		if ref, star, ok := columnRef(n); ok && !star {
			a.Columns = append(a.Columns, ref)
			a.columnScopes = append(a.columnScopes, s)
		}
	case *pg_query.ResTarget:
		if name := n.GetName(); name != "" {
			a.outputs[strings.ToLower(name)] = true
		}
	case *pg_query.InsertStmt, *pg_query.UpdateStmt, *pg_query.DeleteStmt, *pg_query.MergeStmt:
		a.ReadOnly = false
	}

	a.walkFields(m, s)
}

func (a *Analysis) walkFields(m protoreflect.Message, s *scope, skip ...protoreflect.Name) {
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if slices.Contains(skip, fd.Name()) {
			return true
		}

		switch {
		case fd.IsMap():
		case fd.IsList():
			if fd.Message() == nil {
				return true
			}

			list := v.List()
			for i := 0; i < list.Len(); i++ {
				a.walk(list.Get(i).Message(), s)
			}
		case fd.Message() != nil:
			a.walk(v.Message(), s)
		}

		return true
	})
}

// selectStmt opens a scope for sel. The WITH clause and FROM items are
// bound before anything that may refer to them is visited.
func (a *Analysis) selectStmt(sel *pg_query.SelectStmt, parent *scope) {
	s := newScope(parent)

	if with := sel.GetWithClause(); with != nil {
		a.withClause(with, s)
	}

	var from []Relation
	for _, item := range sel.GetFromClause() {
		from = append(from, a.fromItem(item, s)...)
	}

	for _, target := range sel.GetTargetList() {
		ref, star, ok := columnRef(target.GetResTarget().GetVal().GetColumnRef())
		if ok && star {
			a.Stars = append(a.Stars, StarRef{Qualifier: ref.Qualifier, Scope: from, from: s})
		}
	}

	a.walkFields(sel.ProtoReflect(), s, "with_clause", "from_clause")
}

// withClause declares the CTE names in s. A CTE body sees the CTEs declared
// before it, or all of them under WITH RECURSIVE, but not the FROM items
// of the SELECT that owns the clause.
func (a *Analysis) withClause(with *pg_query.WithClause, s *scope) {
	var names []string

	for _, node := range with.GetCtes() {
		cte := node.GetCommonTableExpr()
		if cte == nil {
			a.walk(node.ProtoReflect(), s)
			continue
		}

		name := strings.ToLower(cte.GetCtename())

		body := newScope(s.parent)
		for _, n := range names {
			body.ctes[n] = true
		}

		if with.GetRecursive() {
			for _, other := range with.GetCtes() {
				if c := other.GetCommonTableExpr(); c != nil {
					body.ctes[strings.ToLower(c.GetCtename())] = true
				}
			}
		}

		a.walk(cte.GetCtequery().ProtoReflect(), body)

		names = append(names, name)
	}

	for _, n := range names {
		s.ctes[n] = true
	}
}

// fromItem binds one FROM item in s and returns its relations, without the
// relations of nested subqueries
func (a *Analysis) fromItem(node *pg_query.Node, s *scope) []Relation {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_RangeVar:
		return []Relation{a.addRelation(n.RangeVar, s)}
	case *pg_query.Node_JoinExpr:
		rels := append(a.fromItem(n.JoinExpr.GetLarg(), s), a.fromItem(n.JoinExpr.GetRarg(), s)...)
		a.walk(n.JoinExpr.GetQuals().ProtoReflect(), s)

		if alias := n.JoinExpr.GetAlias().GetAliasname(); alias != "" {
			for _, r := range rels {
				if !r.Derived && !isCatalogTable(strings.ToLower(r.Name)) {
					s.bind(alias, r.Name)
				}
			}

			s.bind(alias, "")
		}

		return rels
	case *pg_query.Node_RangeSubselect:
		a.walk(n.RangeSubselect.GetSubquery().ProtoReflect(), s)

		if alias := n.RangeSubselect.GetAlias().GetAliasname(); alias != "" {
			s.bind(alias, "")
		}

		return nil
	case *pg_query.Node_RangeFunction:
		a.walkFields(n.RangeFunction.ProtoReflect(), s)

		if alias := n.RangeFunction.GetAlias().GetAliasname(); alias != "" {
			s.bind(alias, "")
		}

		return nil
	}

	a.walk(node.ProtoReflect(), s)

	return nil
}

// addRelation records rv and binds its name and alias in s. An
// unqualified name matching a visible CTE is derived; anything else is a
// base table.
func (a *Analysis) addRelation(rv *pg_query.RangeVar, s *scope) Relation {
	r := Relation{Name: rv.GetRelname(), Alias: rv.GetAlias().GetAliasname()}

	key := strings.ToLower(r.Name)
	r.Derived = rv.GetSchemaname() == "" && s.isCTE(key)

	a.Relations = append(a.Relations, r)

	table := r.Name
	if r.Derived || isCatalogTable(key) {
		table = ""
	}

	s.bind(r.Name, table)

	if r.Alias != "" {
		s.bind(r.Alias, table)
	}

	return r
}

func columnRef(n *pg_query.ColumnRef) (ColumnRef, bool, bool) {
	var (
		parts []string
		star  bool
	)

	for _, f := range n.GetFields() {
		switch v := f.GetNode().(type) {
		case *pg_query.Node_String_:
			parts = append(parts, v.String_.GetSval())
		case *pg_query.Node_AStar:
			star = true
		}
	}

	var ref ColumnRef

	if star {
		if len(parts) > 0 {
			ref.Qualifier = parts[len(parts)-1]
		}

		return ref, true, true
	}

	if len(parts) == 0 {
		return ref, false, false
	}

	ref.Name = parts[len(parts)-1]
	if len(parts) > 1 {
		ref.Qualifier = parts[len(parts)-2]
	}

	return ref, false, true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}

func isCatalogTable(name string) bool {
	return strings.HasPrefix(name, "sqlite_")
}

// normalizeQuotes turns MySQL/SQLite backtick identifiers into standard
// double-quoted ones, leaving string literals alone
func normalizeQuotes(sql string) string {
	if !strings.Contains(sql, "`") {
		return sql
	}

	var (
		sb       strings.Builder
		inString bool
	)

	for _, r := range sql {
		switch {
		case r == '\'':
			inString = !inString
		case r == '`' && !inString:
			r = '"'
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
