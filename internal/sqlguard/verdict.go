package sqlguard

import "fmt"

// Reason names why a statement was rejected
type Reason string

const (
	IncompatibleDateSyntax Reason = "incompatible_date_syntax"
	NoAllowedTable         Reason = "no_allowed_table"
	ColumnNotAllowed       Reason = "column_not_allowed"
	TableNotAllowed        Reason = "table_not_allowed"
	Unparseable            Reason = "unparseable"
	MultipleStatements     Reason = "multiple_statements"
	NotReadOnly            Reason = "not_read_only"
)

// Verdict is the validator's answer. Table and Column are set for the
// reasons that name an identifier.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Accept returns the accepting verdict
func Accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(reason Reason, message string) Verdict {
	return Verdict{Reason: reason, Message: message}
}

func rejectDateSyntax() Verdict {
	return reject(IncompatibleDateSyntax, "SQLite doesn't support INTERVAL syntax. Use date('now', '-1 month') instead.")
}

func rejectNoAllowedTable() Verdict {
	return reject(NoAllowedTable, "No allowed tables found in query.")
}

func rejectColumn(column, table string) Verdict {
	v := reject(ColumnNotAllowed, fmt.Sprintf("Column '%s' not allowed for table '%s'.", column, table))
	v.Table = table
	v.Column = column

	return v
}

func rejectTable(table string) Verdict {
	v := reject(TableNotAllowed, fmt.Sprintf("Table '%s' is not allowed.", table))
	v.Table = table

	return v
}

func rejectUnparseable(detail string) Verdict {
	return reject(Unparseable, "Query could not be parsed: "+detail)
}

func rejectMultiple() Verdict {
	return reject(MultipleStatements, "Only a single statement is allowed.")
}

func rejectNotReadOnly() Verdict {
	return reject(NotReadOnly, "Only read-only SELECT statements are allowed.")
}

func (v Verdict) String() string {
	if v.Accepted {
		return "accepted"
	}

	return v.Message
}
