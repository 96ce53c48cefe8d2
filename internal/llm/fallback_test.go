package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

func TestFallbackSQL(t *testing.T) {
	tests := []struct {
		name    string
		grants  []policy.Grant
		catalog *types.Catalog
		want    string
		wantErr bool
	}{
		{
			name: "explicit columns of the first table",
			grants: []policy.Grant{
				{Table: "cust_mast", Columns: policy.Columns("cust_id", "cust_name")},
				{Table: "acct_mast", Columns: policy.AllColumns()},
			},
			want: "SELECT cust_id, cust_name FROM cust_mast LIMIT 10;",
		},
		{
			name: "at most five columns",
			grants: []policy.Grant{
				{Table: "txn_hist", Columns: policy.AllColumns()},
			},
			catalog: tellerCatalog(),
			want:    "SELECT txn_id, acct_id, txn_date, amount, txn_type FROM txn_hist LIMIT 10;",
		},
		{
			name: "unknown columns select star",
			grants: []policy.Grant{
				{Table: "dept_mast", Columns: policy.AllColumns()},
			},
			want: "SELECT * FROM dept_mast LIMIT 10;",
		},
		{
			name:    "no allowed table",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{
				Question:   "anything at all",
				Access:     policy.NewAccess("Teller", tt.grants...),
				Catalog:    tt.catalog,
				Dictionary: tellerDictionary(),
			}

			got, err := FallbackSQL(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackService_GenerateSQL(t *testing.T) {
	service := NewFallbackService()
	require.NoError(t, service.Configure(Config{}))

	first, err := service.GenerateSQL(context.Background(), tellerRequest("who are my customers", ""))
	require.NoError(t, err)

	second, err := service.GenerateSQL(context.Background(), tellerRequest("something unrelated", "ctx"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT cust_id, cust_name, phone FROM cust_mast LIMIT 10;", first.SQL)
	assert.Equal(t, first, second)
	assert.True(t, first.Fallback)
	assert.Equal(t, ProviderFallback, first.Provider)
}
