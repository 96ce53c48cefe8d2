package dictionary

import (
	"strings"

	"github.com/yourbasic/graph"
)

// Relations is an undirected foreign-key graph over a fixed set of tables
type Relations struct {
	tables []string
	index  map[string]int
	graph  *graph.Mutable
	edges  map[[2]int]Entry
}

// RelationGraph links tables that reference each other through a foreign
// key. Only references whose both ends are in tables become edges, and
// when readable is set, only those whose both columns it accepts.
func (d *Dictionary) RelationGraph(tables []string, readable func(table, column string) bool) *Relations {
	r := &Relations{
		tables: make([]string, 0, len(tables)),
		index:  make(map[string]int, len(tables)),
		edges:  make(map[[2]int]Entry),
	}

	for _, t := range tables {
		key := strings.ToLower(t)
		if _, dup := r.index[key]; dup {
			continue
		}

		r.index[key] = len(r.tables)
		r.tables = append(r.tables, t)
	}

	r.graph = graph.New(len(r.tables))

	for _, e := range d.Entries() {
		if !e.HasForeignKey() {
			continue
		}

		from, ok := r.index[strings.ToLower(e.Table)]
		if !ok {
			continue
		}

		to, ok := r.index[strings.ToLower(e.ForeignKeyTable)]
		if !ok || from == to {
			continue
		}

		if readable != nil && (!readable(e.Table, e.Column) || !readable(e.ForeignKeyTable, e.ForeignKeyColumn)) {
			continue
		}

		r.graph.AddBothCost(from, to, 1)

		if _, seen := r.edges[edgeKey(from, to)]; !seen {
			r.edges[edgeKey(from, to)] = e
		}
	}

	return r
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}

	return [2]int{a, b}
}

// JoinPath returns the shortest chain of tables from a to b, both included.
// It is nil when either table is unknown or no path exists.
func (r *Relations) JoinPath(a, b string) []string {
	from, ok := r.index[strings.ToLower(a)]
	if !ok {
		return nil
	}

	to, ok := r.index[strings.ToLower(b)]
	if !ok {
		return nil
	}

	if from == to {
		return []string{r.tables[from]}
	}

	path, dist := graph.ShortestPath(r.graph, from, to)
	if dist < 0 {
		return nil
	}

	names := make([]string, len(path))
	for i, v := range path {
		names[i] = r.tables[v]
	}

	return names
}

// JoinConditions renders the ON clauses for path, e.g.
// "txn_hist.acct_id = acct_mast.acct_id".
func (r *Relations) JoinConditions(path []string) []string {
	var conds []string

	for i := 0; i+1 < len(path); i++ {
		from := r.index[strings.ToLower(path[i])]
		to := r.index[strings.ToLower(path[i+1])]

		e, ok := r.edges[edgeKey(from, to)]
		if !ok {
			return nil
		}

		conds = append(conds, e.Table+"."+e.Column+" = "+e.ForeignKeyTable+"."+e.ForeignKeyColumn)
	}

	return conds
}

// Connected lists every pair of distinct tables that can be joined, with
// the path between them, in table order. Direct neighbours are included.
func (r *Relations) Connected() [][]string {
	var paths [][]string

	for i := range r.tables {
		for j := i + 1; j < len(r.tables); j++ {
			if p := r.JoinPath(r.tables[i], r.tables[j]); len(p) > 1 {
				paths = append(paths, p)
			}
		}
	}

	return paths
}
