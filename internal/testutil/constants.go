// Package testutil provides fixtures, mocks and helpers shared by tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestConcurrency is the number of parallel callers in concurrency tests
	TestConcurrency = 8
)

// Common fixture statements
const (
	// TellerTransactionsSQL reads a table the Teller role sees in full
	TellerTransactionsSQL = "SELECT * FROM txn_hist LIMIT 10;"

	// EmployeesSQL reads a table the Teller role cannot see
	EmployeesSQL = "SELECT emp_id, emp_name FROM emp_mast;"

	// IntervalSQL uses date arithmetic SQLite does not support
	IntervalSQL = "SELECT * FROM txn_hist WHERE txn_date >= CURRENT_DATE - INTERVAL '1 month';"

	// TellerBalancesSQL joins column-restricted tables through allowed columns
	TellerBalancesSQL = "SELECT c.cust_name, a.balance FROM cust_mast c JOIN acct_mast a ON a.cust_id = c.cust_id ORDER BY a.acct_id;"
)
