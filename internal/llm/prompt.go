package llm

import (
	"fmt"
	"strings"
)

const noContext = "No additional context."

const promptHeader = `You are an expert SQL query generator for SQLite. Your task is to write a valid SQLite query based on the user's question and the provided database schema.

### INSTRUCTIONS
1.  **Use ONLY the provided schema**: Do not guess or assume any table or column names that are not listed.
2.  **Join tables correctly**: Use the provided foreign key relationships for JOINS.
3.  **Use valid SQLite syntax**: The target database is SQLite. Ensure all functions, especially for date and time manipulation, are compatible with it. Avoid functions specific to other SQL dialects.
4.  **Output ONLY the SQL query**: Do not add any explanations or extra text.
`

// BuildPrompt renders the generation prompt. Only tables and columns the
// role may read are described.
func BuildPrompt(req *Request) string {
	var sb strings.Builder

	sb.WriteString(promptHeader)
	sb.WriteString("\n### DATABASE SCHEMA\n")
	sb.WriteString(schemaContext(req))

	if paths := joinPaths(req); paths != "" {
		sb.WriteString("\n### JOIN PATHS\n")
		sb.WriteString(paths)
	}

	ragContext := strings.TrimSpace(req.Context)
	if ragContext == "" {
		ragContext = noContext
	}

	fmt.Fprintf(&sb, "\n### RAG CONTEXT (Additional relevant context)\n%s\n", ragContext)
	fmt.Fprintf(&sb, "\n### USER QUESTION\n%s\n", strings.TrimSpace(req.Question))
	sb.WriteString("\n### SQL QUERY\n")

	return sb.String()
}

// TableColumns lists the columns shown for table: the explicit allowed set,
// or for AllColumns the catalog's columns, then the dictionary's.
func TableColumns(req *Request, table string) []string {
	access := req.Access.Columns(table)
	if !access.IsAll() {
		return access.List()
	}

	if cols := req.Catalog.ColumnNames(table); len(cols) > 0 {
		return cols
	}

	var cols []string

	for _, e := range req.Dictionary.Entries() {
		if strings.EqualFold(e.Table, table) {
			cols = append(cols, e.Column)
		}
	}

	return cols
}

func schemaContext(req *Request) string {
	var sb strings.Builder

	for _, table := range req.Access.Tables() {
		columns := "*"
		if cols := TableColumns(req, table); len(cols) > 0 {
			columns = strings.Join(cols, ", ")
		}

		fmt.Fprintf(&sb, "Table `%s` has columns: `%s`.\n", table, columns)

		var fks []string

		for _, fk := range req.Dictionary.ForeignKeys(table) {
			if !readable(req, table, fk.Column) || !readable(req, fk.ForeignKeyTable, fk.ForeignKeyColumn) {
				continue
			}

			fks = append(fks, fmt.Sprintf("`%s` -> `%s`.`%s`", fk.Column, fk.ForeignKeyTable, fk.ForeignKeyColumn))
		}

		if len(fks) > 0 {
			fmt.Fprintf(&sb, "  - Foreign Keys: %s\n", strings.Join(fks, "; "))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// joinPaths lists multi-hop join chains between allowed tables. Direct
// neighbours are already covered by the foreign key lines.
func joinPaths(req *Request) string {
	if req.Dictionary.Len() == 0 {
		return ""
	}

	relations := req.Dictionary.RelationGraph(req.Access.Tables(), func(table, column string) bool {
		return readable(req, table, column)
	})

	var sb strings.Builder

	for _, path := range relations.Connected() {
		if len(path) < 3 {
			continue
		}

		conds := relations.JoinConditions(path)
		if len(conds) == 0 {
			continue
		}

		fmt.Fprintf(&sb, "- `%s`: %s\n", strings.Join(path, "` -> `"), strings.Join(conds, " AND "))
	}

	return sb.String()
}

// readable reports whether the role may read table.column
func readable(req *Request, table, column string) bool {
	return req.Access.HasTable(table) && req.Access.Columns(table).Allows(column)
}
