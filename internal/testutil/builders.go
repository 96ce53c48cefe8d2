package testutil

import (
	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

// Role names used by the fixture policy
const (
	RoleTeller          = "Teller"
	RoleManager         = "Manager"
	RoleAuditor         = "Auditor"
	RoleIT              = "It"
	RoleCustomerService = "Customer Service"
)

var (
	tellerCustomers = policy.Columns("cust_id", "cust_name", "phone")
	tellerAccounts  = policy.Columns("acct_id", "cust_id", "acct_type", "balance")
	tellerCards     = policy.Columns("acct_id", "card_id", "card_type", "status")
)

// BankPolicy returns the fixture access policy: Teller and Customer Service
// see a column subset of a few tables, the remaining roles see everything.
func BankPolicy() *policy.Store {
	var rules []policy.Rule

	add := func(role, table string, access policy.ColumnAccess) {
		rules = append(rules, policy.Rule{Role: role, Table: table, Access: access})
	}

	add(RoleTeller, "cust_mast", tellerCustomers)
	add(RoleTeller, "acct_mast", tellerAccounts)
	add(RoleTeller, "txn_hist", policy.AllColumns())
	add(RoleTeller, "card_mast", tellerCards)

	for _, role := range []string{RoleManager, RoleAuditor, RoleIT} {
		for _, table := range BankTables {
			add(role, table, policy.AllColumns())
		}
	}

	add(RoleCustomerService, "cust_mast", policy.Columns("cust_id", "cust_name", "phone", "address"))
	add(RoleCustomerService, "acct_mast", tellerAccounts)
	add(RoleCustomerService, "card_mast", tellerCards)

	return policy.NewStore(BankTables, rules)
}

// TellerAccess is the resolved Teller view of BankPolicy
func TellerAccess() policy.Access {
	return BankPolicy().Resolve(RoleTeller)
}

// BankDictionary returns the data dictionary describing the fixture bank
func BankDictionary() *dictionary.Dictionary {
	entries := make([]dictionary.Entry, 0, len(bankColumns))
	for _, c := range bankColumns {
		entries = append(entries, dictionary.Entry{
			Table:            c.table,
			TableDescription: bankTableDescriptions[c.table],
			Column:           c.column,
			Description:      c.description,
			Type:             c.typ,
			PrimaryKey:       c.pk,
			ForeignKeyTable:  c.fkTable,
			ForeignKeyColumn: c.fkColumn,
		})
	}

	return dictionary.New(entries)
}

// BankCatalog is the catalog storage.SQLiteDatabase reports for NewBankDB
func BankCatalog() *types.Catalog {
	catalog := &types.Catalog{}

	for _, name := range BankTables {
		table := types.Table{Name: name}

		for _, c := range bankColumns {
			if c.table != name {
				continue
			}

			table.Columns = append(table.Columns, types.Column{
				Name:       c.column,
				Type:       c.typ,
				PrimaryKey: c.pk,
			})

			if c.fkTable != "" {
				table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
					Column:    c.column,
					RefTable:  c.fkTable,
					RefColumn: c.fkColumn,
				})
			}
		}

		catalog.Tables = append(catalog.Tables, table)
	}

	return catalog
}
