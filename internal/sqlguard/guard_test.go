package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

func tellerAccess() policy.Access {
	return policy.NewAccess("Teller",
		policy.Grant{Table: "cust_mast", Columns: policy.Columns("cust_id", "cust_name", "phone")},
		policy.Grant{Table: "acct_mast", Columns: policy.Columns("acct_id", "cust_id", "acct_type", "balance")},
		policy.Grant{Table: "txn_hist", Columns: policy.AllColumns()},
		policy.Grant{Table: "card_mast", Columns: policy.Columns("card_id", "acct_id", "card_type")},
	)
}

func table(name string, columns ...string) types.Table {
	t := types.Table{Name: name}
	for _, c := range columns {
		t.Columns = append(t.Columns, types.Column{Name: c})
	}

	return t
}

func bankCatalog() *types.Catalog {
	return &types.Catalog{Tables: []types.Table{
		table("cust_mast", "cust_id", "cust_name", "dob", "address", "phone"),
		table("acct_mast", "acct_id", "cust_id", "branch_id", "acct_type", "open_date", "balance"),
		table("txn_hist", "txn_id", "acct_id", "txn_date", "amount", "txn_type", "description"),
		table("card_mast", "card_id", "acct_id", "card_type", "issue_date", "expiry_date", "status"),
		table("emp_mast", "emp_id", "emp_name", "dept_id", "branch_id"),
	}}
}

func TestIsAuthorized(t *testing.T) {
	access := tellerAccess()

	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"all columns table", "SELECT * FROM txn_hist LIMIT 10;", true},
		{"upper case table", "SELECT * FROM TXN_HIST", true},
		{"allowed column named", "SELECT cust_name FROM cust_mast", true},
		{"table named without allowed column", "SELECT dob FROM cust_mast", true},
		{"no allowed table", "SELECT emp_name FROM emp_mast", false},
		{"no table at all", "SELECT 1", false},
		{"not even sql", "I cannot answer that", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.sql, access))
			assert.Equal(t, tt.want, New(nil).IsAuthorized(tt.sql, access))
		})
	}
}

func TestIsAuthorized_AllColumnsTablesAlwaysPass(t *testing.T) {
	access := tellerAccess()

	for _, g := range access.Grants() {
		if !g.Columns.IsAll() {
			continue
		}

		for _, sql := range []string{
			"SELECT * FROM " + g.Table,
			"select secret_column from " + g.Table + " where 1 = 1",
			"DELETE FROM " + g.Table,
		} {
			assert.True(t, IsAuthorized(sql, access), sql)
		}
	}
}

func TestIsAuthorized_EmptyAccess(t *testing.T) {
	access := policy.NewAccess("Intern")

	assert.False(t, IsAuthorized("SELECT * FROM txn_hist", access))
	assert.False(t, New(nil, WithLegacyGenericSelect(true)).IsAuthorized("SELECT * FROM txn_hist", access))
}

func TestGuard_IsAuthorized_LegacyGenericSelect(t *testing.T) {
	access := tellerAccess()
	legacy := New(nil, WithLegacyGenericSelect(true))

	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"generic select on other table", "SELECT emp_name FROM emp_mast", true},
		{"multi line generic select", "select emp_name\nfrom emp_mast", true},
		{"not a select", "PRAGMA table_info(emp_mast)", false},
		{"allowed table still passes", "SELECT * FROM txn_hist", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, legacy.IsAuthorized(tt.sql, access))
		})
	}
}

func TestValidateText(t *testing.T) {
	access := tellerAccess()

	tests := []struct {
		name       string
		sql        string
		wantReason Reason
		wantTable  string
		wantColumn string
		wantMsg    string
	}{
		{
			name:       "interval literal",
			sql:        "SELECT * FROM txn_hist WHERE txn_date > now() - INTERVAL '1 month'",
			wantReason: IncompatibleDateSyntax,
			wantMsg:    "SQLite doesn't support INTERVAL syntax. Use date('now', '-1 month') instead.",
		},
		{
			name:       "interval on a forbidden table",
			sql:        "SELECT emp_name FROM emp_mast WHERE hired > current_date - interval 1 day",
			wantReason: IncompatibleDateSyntax,
		},
		{
			name: "interval inside an identifier",
			sql:  "SELECT txn_id FROM txn_hist WHERE interval_days > 3",
		},
		{
			name: "schema master exemption",
			sql:  "SELECT name FROM sqlite_master WHERE type = 'table'",
		},
		{
			name: "pragma exemption",
			sql:  "PRAGMA table_info(emp_mast)",
		},
		{
			name:       "no allowed table",
			sql:        "SELECT * FROM emp_mast",
			wantReason: NoAllowedTable,
			wantMsg:    "No allowed tables found in query.",
		},
		{
			name:       "qualified column not allowed",
			sql:        "SELECT cust_mast.dob FROM cust_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
			wantMsg:    "Column 'dob' not allowed for table 'cust_mast'.",
		},
		{
			name:       "first violation is reported",
			sql:        "SELECT cust_mast.cust_name, cust_mast.address, cust_mast.dob FROM cust_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "address",
		},
		{
			name: "qualified column case insensitive",
			sql:  "SELECT CUST_MAST.CUST_NAME FROM cust_mast",
		},
		{
			name: "qualified column on all columns table",
			sql:  "SELECT txn_hist.description FROM txn_hist",
		},
		{
			name: "unqualified column is not checked",
			sql:  "SELECT dob FROM cust_mast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateText(tt.sql, access)

			if tt.wantReason == "" {
				assert.True(t, v.Accepted, v.Message)
				assert.Equal(t, "accepted", v.String())

				return
			}

			assert.False(t, v.Accepted)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantTable, v.Table)
			assert.Equal(t, tt.wantColumn, v.Column)

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, v.Message)
				assert.Equal(t, tt.wantMsg, v.String())
			}
		})
	}
}

func TestGuard_Validate(t *testing.T) {
	access := tellerAccess()
	guard := New(bankCatalog())

	tests := []struct {
		name       string
		sql        string
		wantReason Reason
		wantTable  string
		wantColumn string
	}{
		{
			name: "all columns star",
			sql:  "SELECT * FROM txn_hist LIMIT 10;",
		},
		{
			name: "sqlite relative date",
			sql:  "SELECT txn_id, amount FROM txn_hist WHERE txn_date >= date('now', '-1 month')",
		},
		{
			name: "aliased join over allowed columns",
			sql:  "SELECT c.cust_name, a.balance FROM cust_mast c JOIN acct_mast a ON a.cust_id = c.cust_id",
		},
		{
			name: "qualified star on all columns table",
			sql: "SELECT t.*, c.cust_name FROM txn_hist t " +
				"JOIN acct_mast a ON a.acct_id = t.acct_id JOIN cust_mast c ON c.cust_id = a.cust_id",
		},
		{
			name: "cte is not a table",
			sql:  "WITH big AS (SELECT acct_id, balance FROM acct_mast WHERE balance > 1000) SELECT big.acct_id FROM big",
		},
		{
			name:       "cte in a nested select does not hide the outer table",
			sql:        "SELECT emp_name, (SELECT count(*) FROM txn_hist) AS n FROM emp_mast WHERE 1 IN (WITH emp_mast AS (SELECT 1 AS x) SELECT x FROM emp_mast);",
			wantReason: TableNotAllowed,
			wantTable:  "emp_mast",
		},
		{
			name:       "cte body naming itself reads the real table",
			sql:        "WITH cust_mast AS (SELECT dob FROM cust_mast) SELECT dob FROM cust_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name: "correlated subquery",
			sql:  "SELECT c.cust_name FROM cust_mast c WHERE EXISTS (SELECT 1 FROM acct_mast a WHERE a.cust_id = c.cust_id)",
		},
		{
			name:       "alias reused by a subquery",
			sql:        "SELECT c.dob FROM cust_mast c WHERE EXISTS (SELECT 1 FROM txn_hist c)",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name:       "shadowed alias is checked against every table it names",
			sql:        "SELECT c.cust_name FROM cust_mast c WHERE EXISTS (SELECT 1 FROM txn_hist c WHERE c.amount > 0)",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "amount",
		},
		{
			name:       "qualified star through a reused alias",
			sql:        "SELECT c.* FROM cust_mast c WHERE EXISTS (SELECT 1 FROM txn_hist c)",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name:       "join alias covers both sides",
			sql:        "SELECT j.dob FROM (cust_mast JOIN acct_mast USING (cust_id)) AS j",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name: "subquery alias",
			sql:  "SELECT s.total FROM (SELECT SUM(amount) AS total FROM txn_hist) s",
		},
		{
			name: "star over a subquery",
			sql:  "SELECT * FROM (SELECT cust_id, cust_name FROM cust_mast) s",
		},
		{
			name: "output alias in order by",
			sql:  "SELECT acct_type, COUNT(*) AS n FROM acct_mast GROUP BY acct_type ORDER BY n DESC",
		},
		{
			name: "backtick identifiers",
			sql:  "SELECT `cust_name` FROM `cust_mast`",
		},
		{
			name: "introspection",
			sql:  "SELECT name FROM sqlite_master WHERE type = 'table'",
		},
		{
			name: "pragma introspection",
			sql:  "PRAGMA foreign_key_list('acct_mast');",
		},
		{
			name:       "interval",
			sql:        "SELECT * FROM txn_hist WHERE txn_date > CURRENT_DATE - INTERVAL '7 days'",
			wantReason: IncompatibleDateSyntax,
		},
		{
			name:       "unqualified column not allowed",
			sql:        "SELECT dob FROM cust_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name:       "aliased column not allowed",
			sql:        "SELECT c.address FROM cust_mast c",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "address",
		},
		{
			name:       "backtick column not allowed",
			sql:        "SELECT `open_date` FROM acct_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "acct_mast",
			wantColumn: "open_date",
		},
		{
			name:       "column hidden in where clause",
			sql:        "SELECT cust_name FROM cust_mast WHERE dob < '1970-01-01'",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name:       "star on column restricted table",
			sql:        "SELECT * FROM cust_mast",
			wantReason: ColumnNotAllowed,
			wantTable:  "cust_mast",
			wantColumn: "dob",
		},
		{
			name:       "forbidden table joined to allowed one",
			sql:        "SELECT c.cust_name, e.emp_name FROM cust_mast c JOIN emp_mast e ON e.emp_id = c.cust_id",
			wantReason: TableNotAllowed,
			wantTable:  "emp_mast",
		},
		{
			name:       "introspection marker in a comment",
			sql:        "SELECT c.cust_name FROM cust_mast c, emp_mast -- sqlite_master",
			wantReason: TableNotAllowed,
			wantTable:  "emp_mast",
		},
		{
			name:       "second statement",
			sql:        "SELECT * FROM txn_hist; DELETE FROM txn_hist;",
			wantReason: MultipleStatements,
		},
		{
			name:       "delete",
			sql:        "DELETE FROM txn_hist WHERE txn_id = 1",
			wantReason: NotReadOnly,
		},
		{
			name:       "update",
			sql:        "UPDATE acct_mast SET balance = 0",
			wantReason: NotReadOnly,
		},
		{
			name:       "select into",
			sql:        "SELECT * INTO backup FROM txn_hist",
			wantReason: NotReadOnly,
		},
		{
			name:       "data modifying cte",
			sql:        "WITH d AS (DELETE FROM txn_hist RETURNING txn_id) SELECT txn_id FROM d",
			wantReason: NotReadOnly,
		},
		{
			name:       "syntax error",
			sql:        "SELECT amount FROM txn_hist WHERE (",
			wantReason: Unparseable,
		},
		{
			name:       "no allowed table",
			sql:        "SELECT emp_name FROM emp_mast",
			wantReason: NoAllowedTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := guard.Validate(tt.sql, access)

			if tt.wantReason == "" {
				assert.True(t, v.Accepted, v.Message)
				return
			}

			require.False(t, v.Accepted)
			assert.Equal(t, tt.wantReason, v.Reason, v.Message)
			assert.Equal(t, tt.wantTable, v.Table)
			assert.Equal(t, tt.wantColumn, v.Column)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestGuard_Validate_WithoutCatalog(t *testing.T) {
	access := tellerAccess()
	guard := New(nil)

	tests := []struct {
		name       string
		sql        string
		wantColumn string
	}{
		{"single table column", "SELECT dob FROM cust_mast", "dob"},
		{"star without known columns", "SELECT * FROM cust_mast", "*"},
		{"allowed column", "SELECT cust_name FROM cust_mast", ""},
		{"output alias", "SELECT COUNT(*) AS total FROM cust_mast ORDER BY total", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := guard.Validate(tt.sql, access)

			if tt.wantColumn == "" {
				assert.True(t, v.Accepted, v.Message)
				return
			}

			assert.Equal(t, ColumnNotAllowed, v.Reason)
			assert.Equal(t, tt.wantColumn, v.Column)
		})
	}
}

func TestGuard_Validate_TextOnly(t *testing.T) {
	access := tellerAccess()
	guard := New(bankCatalog(), WithStrictParse(false))

	assert.True(t, guard.Validate("SELECT dob FROM cust_mast", access).Accepted)
	assert.True(t, guard.Validate("SELECT * FROM emp_mast -- sqlite_master", access).Accepted)
	assert.Equal(t, NoAllowedTable, New(bankCatalog()).Validate("SELECT * FROM emp_mast -- sqlite_master", access).Reason)
}

func TestGuard_ValidateStricterThanText(t *testing.T) {
	access := tellerAccess()
	guard := New(bankCatalog())

	for _, sql := range []string{
		"SELECT * FROM txn_hist",
		"SELECT cust_mast.cust_name FROM cust_mast",
		"SELECT dob FROM cust_mast",
		"SELECT * FROM emp_mast",
		"DELETE FROM txn_hist",
	} {
		if guard.Validate(sql, access).Accepted {
			assert.True(t, ValidateText(sql, access).Accepted, sql)
		}
	}
}
