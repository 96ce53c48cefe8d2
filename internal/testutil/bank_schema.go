package testutil

// BankTables lists the fixture bank tables in policy order
var BankTables = []string{
	"cust_mast",
	"acct_mast",
	"txn_hist",
	"emp_mast",
	"branch_mast",
	"dept_mast",
	"card_mast",
	"loan_mast",
	"amc_mast",
	"amc_bank_dtl",
	"euin_mast",
}

var bankTableDescriptions = map[string]string{
	"cust_mast":    "Customer master table",
	"acct_mast":    "Account master table",
	"txn_hist":     "Transaction history",
	"emp_mast":     "Employee master table",
	"branch_mast":  "Branch master table",
	"dept_mast":    "Department master table",
	"card_mast":    "Card master table",
	"loan_mast":    "Loan master table",
	"amc_mast":     "Asset Management Company master",
	"amc_bank_dtl": "AMC Bank Details",
	"euin_mast":    "Employee Unique Identification Number master",
}

type bankColumn struct {
	table       string
	column      string
	description string
	typ         string
	pk          bool
	fkTable     string
	fkColumn    string
}

// bankColumns is the single source for the fixture schema and its dictionary
var bankColumns = []bankColumn{
	{"cust_mast", "cust_id", "Customer ID", "INTEGER", true, "", ""},
	{"cust_mast", "cust_name", "Customer Name", "TEXT", false, "", ""},
	{"cust_mast", "dob", "Date of Birth", "TEXT", false, "", ""},
	{"cust_mast", "address", "Customer Address", "TEXT", false, "", ""},
	{"cust_mast", "phone", "Customer Phone Number", "TEXT", false, "", ""},
	{"acct_mast", "acct_id", "Account ID", "INTEGER", true, "", ""},
	{"acct_mast", "cust_id", "Customer ID", "INTEGER", false, "cust_mast", "cust_id"},
	{"acct_mast", "branch_id", "Branch ID", "INTEGER", false, "branch_mast", "branch_id"},
	{"acct_mast", "acct_type", "Account Type", "TEXT", false, "", ""},
	{"acct_mast", "open_date", "Account Open Date", "TEXT", false, "", ""},
	{"acct_mast", "balance", "Account Balance", "REAL", false, "", ""},
	{"txn_hist", "txn_id", "Transaction ID", "INTEGER", true, "", ""},
	{"txn_hist", "acct_id", "Account ID", "INTEGER", false, "acct_mast", "acct_id"},
	{"txn_hist", "txn_date", "Transaction Date", "TEXT", false, "", ""},
	{"txn_hist", "amount", "Transaction Amount", "REAL", false, "", ""},
	{"txn_hist", "txn_type", "Transaction Type", "TEXT", false, "", ""},
	{"txn_hist", "description", "Transaction Description", "TEXT", false, "", ""},
	{"emp_mast", "emp_id", "Employee ID", "INTEGER", true, "", ""},
	{"emp_mast", "emp_name", "Employee Name", "TEXT", false, "", ""},
	{"emp_mast", "dept_id", "Department ID", "INTEGER", false, "dept_mast", "dept_id"},
	{"emp_mast", "branch_id", "Branch ID", "INTEGER", false, "branch_mast", "branch_id"},
	{"branch_mast", "branch_id", "Branch ID", "INTEGER", true, "", ""},
	{"branch_mast", "branch_name", "Branch Name", "TEXT", false, "", ""},
	{"branch_mast", "location", "Branch Location", "TEXT", false, "", ""},
	{"dept_mast", "dept_id", "Department ID", "INTEGER", true, "", ""},
	{"dept_mast", "dept_name", "Department Name", "TEXT", false, "", ""},
	{"card_mast", "card_id", "Card ID", "INTEGER", true, "", ""},
	{"card_mast", "acct_id", "Account ID", "INTEGER", false, "acct_mast", "acct_id"},
	{"card_mast", "card_type", "Card Type", "TEXT", false, "", ""},
	{"card_mast", "issue_date", "Issue Date", "TEXT", false, "", ""},
	{"card_mast", "expiry_date", "Card Expiry Date", "TEXT", false, "", ""},
	{"card_mast", "status", "Status", "TEXT", false, "", ""},
	{"loan_mast", "loan_id", "Loan ID", "INTEGER", true, "", ""},
	{"loan_mast", "cust_id", "Customer ID", "INTEGER", false, "cust_mast", "cust_id"},
	{"loan_mast", "amount", "Loan Amount", "REAL", false, "", ""},
	{"loan_mast", "issue_date", "Issue Date", "TEXT", false, "", ""},
	{"loan_mast", "status", "Status", "TEXT", false, "", ""},
	{"amc_mast", "amc_id", "AMC ID", "INTEGER", true, "", ""},
	{"amc_mast", "amc_name", "AMC Name", "TEXT", false, "", ""},
	{"amc_bank_dtl", "amc_bank_id", "AMC Bank ID", "INTEGER", true, "", ""},
	{"amc_bank_dtl", "amc_id", "AMC ID", "INTEGER", false, "amc_mast", "amc_id"},
	{"amc_bank_dtl", "bank_name", "Bank Name", "TEXT", false, "", ""},
	{"amc_bank_dtl", "account_no", "Bank Account Number", "TEXT", false, "", ""},
	{"amc_bank_dtl", "ifsc_code", "Bank IFSC Code", "TEXT", false, "", ""},
	{"euin_mast", "euin_no", "Employee Unique Identification Number", "TEXT", true, "", ""},
	{"euin_mast", "emp_id", "Employee ID", "INTEGER", false, "emp_mast", "emp_id"},
	{"euin_mast", "issue_date", "Issue Date", "TEXT", false, "", ""},
}
