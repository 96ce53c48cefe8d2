package sqlguard

import (
	"regexp"
	"strings"

	"github.com/kyleking/askdb/internal/policy"
)

var genericSelect = regexp.MustCompile(`(?is)\bselect\b.*\bfrom\b`)

// IsAuthorized is the coarse textual filter applied to every generated
// candidate. A candidate passes when it names an allowed table; tables with
// an explicit column list are accepted on a column match and, failing that,
// on the table match alone. Statements naming no allowed table are rejected.
func IsAuthorized(sql string, access policy.Access) bool {
	lower := strings.ToLower(sql)
	found := false

	for _, g := range access.Grants() {
		if !strings.Contains(lower, strings.ToLower(g.Table)) {
			continue
		}

		found = true

		if g.Columns.IsAll() {
			return true
		}

		for _, col := range g.Columns.List() {
			if strings.Contains(lower, strings.ToLower(col)) {
				return true
			}
		}
	}

	return found
}

// isGenericSelect reports whether sql reads like "select ... from ..."
func isGenericSelect(sql string) bool {
	return genericSelect.MatchString(sql)
}

// legacyAuthorized restores the historical ordering in which any generic
// select is accepted for a role with at least one table, even when no
// allowed table is named. Known to be too broad; off unless configured.
func legacyAuthorized(sql string, access policy.Access) bool {
	if IsAuthorized(sql, access) {
		return true
	}

	return !access.IsEmpty() && isGenericSelect(sql)
}
