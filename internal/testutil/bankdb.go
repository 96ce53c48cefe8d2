package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jaswdr/faker"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// BankSeed makes the fixture rows identical across runs
const BankSeed = 20240101

// Row counts of the seeded fixture database
const (
	BankCustomers    = 20
	BankBranches     = 4
	BankDepartments  = 3
	BankAccounts     = 30
	BankTransactions = 60
	BankEmployees    = 10
	BankCards        = 15
	BankLoans        = 8
	BankAMCs         = 3
	BankAMCAccounts  = 6
)

var seedEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// BankSchema returns the CREATE TABLE statements for the fixture bank
func BankSchema() []string {
	stmts := make([]string, 0, len(BankTables))

	for _, table := range BankTables {
		var defs []string

		for _, c := range bankColumns {
			if c.table != table {
				continue
			}

			def := c.column + " " + c.typ
			if c.pk {
				def += " PRIMARY KEY"
			}

			if c.fkTable != "" {
				def += fmt.Sprintf(" REFERENCES %s(%s)", c.fkTable, c.fkColumn)
			}

			defs = append(defs, def)
		}

		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")))
	}

	return stmts
}

// NewBankDB creates a seeded SQLite bank database in a temporary directory
// and returns its path. The file is removed when the test ends.
func NewBankDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bank.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)

	defer db.Close()

	for _, stmt := range BankSchema() {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	require.NoError(t, SeedBank(db, faker.NewWithSeed(rand.NewSource(BankSeed))))

	return path
}

// SeedBank fills every fixture table inside one transaction
func SeedBank(db *sql.DB, f faker.Faker) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}

	seeder := &bankSeeder{tx: tx, f: f}
	seeder.seed()

	if seeder.err != nil {
		_ = tx.Rollback()
		return seeder.err
	}

	return tx.Commit()
}

type bankSeeder struct {
	tx  *sql.Tx
	f   faker.Faker
	err error
}

func (s *bankSeeder) insert(table string, values ...interface{}) {
	if s.err != nil {
		return
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	if _, err := s.tx.Exec(fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, marks), values...); err != nil {
		s.err = fmt.Errorf("failed to seed %s: %w", table, err)
	}
}

func (s *bankSeeder) date(maxDays int) string {
	return seedEpoch.AddDate(0, 0, -s.f.IntBetween(0, maxDays)).Format("2006-01-02")
}

func (s *bankSeeder) amount(min, max int) float64 {
	return float64(s.f.IntBetween(min*100, max*100)) / 100
}

func (s *bankSeeder) seed() {
	for i := 1; i <= BankBranches; i++ {
		city := s.f.Address().City()
		s.insert("branch_mast", i, city+" Branch", city)
	}

	departments := []string{"Retail Banking", "Operations", "Information Technology"}
	for i := 1; i <= BankDepartments; i++ {
		s.insert("dept_mast", i, departments[(i-1)%len(departments)])
	}

	for i := 1; i <= BankCustomers; i++ {
		s.insert("cust_mast", i, s.f.Person().Name(), s.date(365*50),
			s.f.Address().Address(), s.f.Phone().Number())
	}

	for i := 1; i <= BankAccounts; i++ {
		s.insert("acct_mast", i, s.f.IntBetween(1, BankCustomers), s.f.IntBetween(1, BankBranches),
			s.f.RandomStringElement([]string{"SAVINGS", "CURRENT", "FIXED"}), s.date(365*5), s.amount(0, 250000))
	}

	for i := 1; i <= BankTransactions; i++ {
		s.insert("txn_hist", i, s.f.IntBetween(1, BankAccounts), s.date(90), s.amount(1, 5000),
			s.f.RandomStringElement([]string{"DEBIT", "CREDIT"}), s.f.Lorem().Sentence(4))
	}

	for i := 1; i <= BankEmployees; i++ {
		s.insert("emp_mast", i, s.f.Person().Name(), s.f.IntBetween(1, BankDepartments), s.f.IntBetween(1, BankBranches))
		s.insert("euin_mast", fmt.Sprintf("E%06d", i), i, s.date(365*3))
	}

	for i := 1; i <= BankCards; i++ {
		issued := s.date(365 * 2)
		s.insert("card_mast", i, s.f.IntBetween(1, BankAccounts),
			s.f.RandomStringElement([]string{"DEBIT", "CREDIT"}), issued, expiry(issued),
			s.f.RandomStringElement([]string{"ACTIVE", "BLOCKED"}))
	}

	for i := 1; i <= BankLoans; i++ {
		s.insert("loan_mast", i, s.f.IntBetween(1, BankCustomers), s.amount(10000, 500000), s.date(365*4),
			s.f.RandomStringElement([]string{"OPEN", "CLOSED"}))
	}

	for i := 1; i <= BankAMCs; i++ {
		s.insert("amc_mast", i, s.f.Company().Name()+" Asset Management")
	}

	for i := 1; i <= BankAMCAccounts; i++ {
		s.insert("amc_bank_dtl", i, s.f.IntBetween(1, BankAMCs), s.f.Company().Name()+" Bank",
			fmt.Sprintf("%012d", s.f.IntBetween(1, 999999999)), fmt.Sprintf("BANK0%06d", s.f.IntBetween(0, 999999)))
	}
}

func expiry(issued string) string {
	t, err := time.Parse("2006-01-02", issued)
	if err != nil {
		return issued
	}

	return t.AddDate(5, 0, 0).Format("2006-01-02")
}
