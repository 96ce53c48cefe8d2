package sqlguard

import (
	"regexp"
	"strings"

	"github.com/kyleking/askdb/internal/policy"
)

var (
	intervalKeyword = regexp.MustCompile(`(?i)\binterval\b`)

	introspectionMarkers = []string{
		"sqlite_master",
		"pragma table_info",
		"pragma foreign_key_list",
		"pragma index_list",
	}
)

// ValidateText runs the textual checks, in order: interval arithmetic,
// the introspection exemption, at least one allowed table named, then every
// qualified table.column reference on a column-restricted table.
func ValidateText(sql string, access policy.Access) Verdict {
	if intervalKeyword.MatchString(sql) {
		return rejectDateSyntax()
	}

	if mentionsIntrospection(sql) {
		return Accept()
	}

	return checkTablesAndColumns(sql, access)
}

func mentionsIntrospection(sql string) bool {
	lower := strings.ToLower(sql)
	for _, marker := range introspectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

func checkTablesAndColumns(sql string, access policy.Access) Verdict {
	lower := strings.ToLower(sql)

	var found []policy.Grant

	for _, g := range access.Grants() {
		if strings.Contains(lower, strings.ToLower(g.Table)) {
			found = append(found, g)
		}
	}

	if len(found) == 0 {
		return rejectNoAllowedTable()
	}

	for _, g := range found {
		if g.Columns.IsAll() {
			continue
		}

		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(g.Table) + `\.(\w+)`)
		for _, m := range pattern.FindAllStringSubmatch(sql, -1) {
			if !g.Columns.Allows(m[1]) {
				return rejectColumn(m[1], g.Table)
			}
		}
	}

	return Accept()
}
