package llm

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

func tellerDictionary() *dictionary.Dictionary {
	return dictionary.New([]dictionary.Entry{
		{Table: "cust_mast", Column: "cust_id", Description: "Customer ID", Type: "INTEGER", PrimaryKey: true},
		{Table: "cust_mast", Column: "cust_name", Description: "Customer Name", Type: "TEXT"},
		{Table: "acct_mast", Column: "acct_id", Description: "Account ID", Type: "INTEGER", PrimaryKey: true},
		{Table: "acct_mast", Column: "cust_id", Description: "Customer ID", Type: "INTEGER", ForeignKeyTable: "cust_mast", ForeignKeyColumn: "cust_id"},
		{Table: "acct_mast", Column: "branch_id", Description: "Branch ID", Type: "INTEGER", ForeignKeyTable: "branch_mast", ForeignKeyColumn: "branch_id"},
		{Table: "acct_mast", Column: "balance", Description: "Account Balance", Type: "REAL"},
		{Table: "txn_hist", Column: "txn_id", Description: "Transaction ID", Type: "INTEGER", PrimaryKey: true},
		{Table: "txn_hist", Column: "acct_id", Description: "Account ID", Type: "INTEGER", ForeignKeyTable: "acct_mast", ForeignKeyColumn: "acct_id"},
		{Table: "txn_hist", Column: "amount", Description: "Transaction Amount", Type: "REAL"},
	})
}

func tellerCatalog() *types.Catalog {
	return &types.Catalog{Tables: []types.Table{
		{Name: "txn_hist", Columns: []types.Column{
			{Name: "txn_id"}, {Name: "acct_id"}, {Name: "txn_date"},
			{Name: "amount"}, {Name: "txn_type"}, {Name: "description"},
		}},
	}}
}

func tellerRequest(question, context string) *Request {
	access := policy.NewAccess("Teller",
		policy.Grant{Table: "cust_mast", Columns: policy.Columns("cust_id", "cust_name", "phone")},
		policy.Grant{Table: "acct_mast", Columns: policy.Columns("acct_id", "cust_id", "acct_type", "balance")},
		policy.Grant{Table: "txn_hist", Columns: policy.AllColumns()},
	)

	return &Request{
		Question:   question,
		Access:     access,
		Catalog:    tellerCatalog(),
		Dictionary: tellerDictionary(),
		Context:    context,
	}
}

func TestBuildPrompt_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name     string
		question string
		context  string
	}{
		{
			name:     "teller_with_context",
			question: "Show the largest transactions for each customer",
			context:  "txn_hist.amount: Transaction Amount\nacct_mast.balance: Account Balance",
		},
		{
			name:     "teller_without_context",
			question: "  How many accounts are there?  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(BuildPrompt(tellerRequest(tt.question, tt.context))))
		})
	}
}

func TestBuildPrompt_HidesDisallowedSchema(t *testing.T) {
	prompt := BuildPrompt(tellerRequest("anything", ""))

	assert.NotContains(t, prompt, "branch_mast")
	assert.NotContains(t, prompt, "loan_mast")
	assert.Contains(t, prompt, "Table `txn_hist` has columns: `txn_id, acct_id, txn_date, amount, txn_type, description`.")
	assert.Contains(t, prompt, noContext)
}

func TestBuildPrompt_SkipsUnreadableForeignKeys(t *testing.T) {
	req := tellerRequest("anything", "")
	req.Access = policy.NewAccess("Teller",
		policy.Grant{Table: "cust_mast", Columns: policy.Columns("cust_id", "cust_name")},
		policy.Grant{Table: "acct_mast", Columns: policy.Columns("acct_id", "balance")},
		policy.Grant{Table: "txn_hist", Columns: policy.AllColumns()},
	)

	prompt := BuildPrompt(req)

	assert.NotContains(t, prompt, "`cust_id` -> `cust_mast`.`cust_id`")
	assert.NotContains(t, prompt, "acct_mast.cust_id")
	assert.NotContains(t, prompt, "### JOIN PATHS")
	assert.Contains(t, prompt, "  - Foreign Keys: `acct_id` -> `acct_mast`.`acct_id`")
}

func TestBuildPrompt_NoJoinPathsWithoutDictionary(t *testing.T) {
	req := tellerRequest("anything", "")
	req.Dictionary = nil

	prompt := BuildPrompt(req)

	assert.NotContains(t, prompt, "### JOIN PATHS")
	assert.NotContains(t, prompt, "Foreign Keys")
}

func TestTableColumns(t *testing.T) {
	dict := tellerDictionary()

	tests := []struct {
		name    string
		access  policy.ColumnAccess
		catalog *types.Catalog
		table   string
		want    []string
	}{
		{
			name:   "explicit list",
			access: policy.Columns("acct_id", "balance"),
			table:  "acct_mast",
			want:   []string{"acct_id", "balance"},
		},
		{
			name:    "all columns from catalog",
			access:  policy.AllColumns(),
			catalog: tellerCatalog(),
			table:   "txn_hist",
			want:    []string{"txn_id", "acct_id", "txn_date", "amount", "txn_type", "description"},
		},
		{
			name:   "all columns from dictionary",
			access: policy.AllColumns(),
			table:  "txn_hist",
			want:   []string{"txn_id", "acct_id", "amount"},
		},
		{
			name:   "all columns unknown table",
			access: policy.AllColumns(),
			table:  "dept_mast",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{
				Access:     policy.NewAccess("Teller", policy.Grant{Table: tt.table, Columns: tt.access}),
				Catalog:    tt.catalog,
				Dictionary: dict,
			}

			assert.Equal(t, tt.want, TableColumns(req, tt.table))
		})
	}
}

func TestRequest_WithContext(t *testing.T) {
	req := tellerRequest("question", "")
	withCtx := req.WithContext("cust_mast.cust_name: Customer Name")

	assert.Empty(t, req.Context)
	assert.Equal(t, "cust_mast.cust_name: Customer Name", withCtx.Context)
	assert.Equal(t, req.Question, withCtx.Question)
	assert.True(t, strings.Contains(BuildPrompt(withCtx), "cust_mast.cust_name: Customer Name"))
}
