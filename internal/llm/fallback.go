package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
)

// fallbackColumnLimit and fallbackRowLimit bound the fallback statement
const (
	fallbackColumnLimit = 5
	fallbackRowLimit    = 10
)

// FallbackService produces a deterministic statement without any model:
// up to five allowed columns of the first allowed table, ten rows.
type FallbackService struct{}

// NewFallbackService creates a new fallback service
func NewFallbackService() *FallbackService {
	return &FallbackService{}
}

// Configure is a no-op for the fallback service
func (f *FallbackService) Configure(Config) error {
	return nil
}

// GenerateSQL ignores the question; it fails only when the role has no table
func (f *FallbackService) GenerateSQL(_ context.Context, req *Request) (*Response, error) {
	sql, err := FallbackSQL(req)
	if err != nil {
		return nil, err
	}

	return &Response{SQL: sql, Provider: ProviderFallback, Fallback: true}, nil
}

// FallbackSQL renders the fallback statement for req
func FallbackSQL(req *Request) (string, error) {
	tables := req.Access.Tables()
	if len(tables) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "no allowed table to build a fallback query from")
	}

	table := tables[0]

	columns := "*"
	if cols := TableColumns(req, table); len(cols) > 0 {
		if len(cols) > fallbackColumnLimit {
			cols = cols[:fallbackColumnLimit]
		}

		columns = strings.Join(cols, ", ")
	}

	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d;", columns, table, fallbackRowLimit), nil
}
