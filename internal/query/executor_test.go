package query

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/testutil"
)

func newMock(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewExecutor(db, WithTimeout(time.Second), WithMaxRows(3)), mock
}

func TestExecutor_Execute(t *testing.T) {
	executor, mock := newMock(t)

	stmt := "SELECT cust_id, cust_name FROM cust_mast LIMIT 10;"
	mock.ExpectQuery(regexp.QuoteMeta(stmt)).WillReturnRows(
		sqlmock.NewRows([]string{"cust_id", "cust_name"}).
			AddRow(int64(1), []byte("Asha Rao")).
			AddRow(int64(2), "Vikram Shah").
			AddRow(int64(3), nil),
	)

	result, err := executor.Execute(context.Background(), stmt)
	require.NoError(t, err)

	assert.Equal(t, []string{"cust_id", "cust_name"}, result.Columns)
	assert.Equal(t, [][]interface{}{
		{int64(1), "Asha Rao"},
		{int64(2), "Vikram Shah"},
		{int64(3), nil},
	}, result.Rows)
	assert.False(t, result.Truncated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Execute_Truncates(t *testing.T) {
	executor, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"txn_id"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(int64(i))
	}

	mock.ExpectQuery("SELECT txn_id FROM txn_hist").WillReturnRows(rows)

	result, err := executor.Execute(context.Background(), "SELECT txn_id FROM txn_hist")
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount())
	assert.True(t, result.Truncated)
}

func TestExecutor_Execute_EmptyResult(t *testing.T) {
	executor, mock := newMock(t)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"loan_id", "amount"}))

	result, err := executor.Execute(context.Background(), "SELECT loan_id, amount FROM loan_mast WHERE 1 = 0")
	require.NoError(t, err)

	assert.True(t, result.IsEmpty())
	assert.NotNil(t, result.Rows)
	assert.Equal(t, 2, result.ColumnCount())
}

func TestExecutor_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantMsg string
	}{
		{
			name: "missing table",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(stderrors.New("no such table: cust_master"))
			},
			wantMsg: "no such table: cust_master",
		},
		{
			name: "row error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnRows(
					sqlmock.NewRows([]string{"a"}).
						AddRow(1).
						AddRow(2).
						RowError(1, stderrors.New("database disk image is malformed")),
				)
			},
			wantMsg: "database disk image is malformed",
		},
		{
			name: "timeout",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillDelayFor(time.Second).WillReturnRows(sqlmock.NewRows([]string{"a"}))
			},
			wantMsg: "query timed out after 20ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setup(mock)

			executor := NewExecutor(db, WithTimeout(20*time.Millisecond))

			result, err := executor.Execute(context.Background(), "SELECT a FROM t")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsType(err, errors.ErrTypeExecution))
			assert.Equal(t, tt.wantMsg, errors.Message(err))
		})
	}
}

func TestNewExecutor_Defaults(t *testing.T) {
	executor := NewExecutor(nil, WithMaxRows(0))

	assert.Equal(t, DefaultMaxRows, executor.maxRows)
	assert.Zero(t, executor.timeout)
}

func TestExecutor_Execute_ReadOnlyDatabase(t *testing.T) {
	db, err := storage.OpenSQLite(testutil.NewBankDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	executor := NewExecutor(db.DB(), WithTimeout(testutil.TestTimeout))

	for _, stmt := range []string{
		"DELETE FROM txn_hist RETURNING txn_id",
		"UPDATE acct_mast SET balance = 0 RETURNING acct_id",
	} {
		_, err := executor.Execute(ctx, stmt)
		require.Error(t, err, stmt)
		assert.True(t, errors.IsType(err, errors.ErrTypeExecution), stmt)
	}

	result, err := executor.Execute(ctx, "SELECT COUNT(*) AS n FROM txn_hist")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{int64(testutil.BankTransactions)}}, result.Rows)
}
