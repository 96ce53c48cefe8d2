package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/tableprinter"

	"github.com/kyleking/askdb/internal/assistant"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/schemaindex"
	"github.com/kyleking/askdb/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

// nullText is printed for SQL NULL values
const nullText = "NULL"

// Formatter renders command output. On a terminal tables are aligned and
// truncated to width; otherwise fields are tab separated.
type Formatter struct {
	out   io.Writer
	isTTY bool
	width int
}

// NewFormatter creates a formatter writing to out
func NewFormatter(out io.Writer, isTTY bool, width int) *Formatter {
	if width <= 0 {
		width = 120
	}

	return &Formatter{out: out, isTTY: isTTY, width: width}
}

func (f *Formatter) table() tableprinter.TablePrinter {
	return tableprinter.New(f.out, f.isTTY, f.width)
}

// Answer prints the statement, the message and the result rows
func (f *Formatter) Answer(answer *assistant.Answer, format OutputFormat) error {
	if format == FormatJSON {
		return f.JSON(answer)
	}

	if answer.SQL != "" {
		fmt.Fprintf(f.out, "SQL: %s\n\n", answer.SQL)
	}

	fmt.Fprintln(f.out, answer.Message)

	if answer.Rows == nil || answer.Rows.IsEmpty() {
		return nil
	}

	fmt.Fprintln(f.out)

	tp := f.table()
	tp.AddHeader(answer.Rows.Columns)

	for _, row := range answer.Rows.Rows {
		for _, v := range row {
			tp.AddField(FormatValue(v))
		}

		tp.EndRow()
	}

	if err := tp.Render(); err != nil {
		return err
	}

	if answer.Rows.Truncated {
		fmt.Fprintf(f.out, "\n(first %d rows shown)\n", answer.Rows.RowCount())
	}

	return nil
}

// Roles prints each role's allowed tables and their column policy
func (f *Formatter) Roles(store *policy.Store, roles ...string) error {
	if len(roles) == 0 {
		roles = store.Roles()
	}

	tp := f.table()
	tp.AddHeader([]string{"ROLE", "TABLE", "COLUMNS"})

	for _, role := range roles {
		access := store.Resolve(role)
		if access.IsEmpty() {
			tp.AddField(access.Role())
			tp.AddField("-")
			tp.AddField("no access")
			tp.EndRow()

			continue
		}

		for _, grant := range access.Grants() {
			tp.AddField(access.Role())
			tp.AddField(grant.Table)
			tp.AddField(grant.Columns.String())
			tp.EndRow()
		}
	}

	return tp.Render()
}

// Context prints the retrieval mode and the retrieved entries
func (f *Formatter) Context(mode schemaindex.Mode, results []schemaindex.Result) error {
	fmt.Fprintf(f.out, "Retrieval mode: %s\n", mode)

	if len(results) == 0 {
		fmt.Fprintln(f.out, "No matching dictionary entries.")
		return nil
	}

	fmt.Fprintln(f.out)

	tp := f.table()
	tp.AddHeader([]string{"SCORE", "TABLE", "COLUMN", "DESCRIPTION"})

	for _, r := range results {
		tp.AddField(strconv.FormatFloat(r.Score, 'f', 3, 64))
		tp.AddField(r.Table)
		tp.AddField(r.Column)
		tp.AddField(r.Description)
		tp.EndRow()
	}

	return tp.Render()
}

// Status prints business table row counts and, when available, history stats
func (f *Formatter) Status(path string, counts []storage.TableCount, stats *storage.HistoryStats) error {
	fmt.Fprintf(f.out, "Database: %s\n\n", path)

	tp := f.table()
	tp.AddHeader([]string{"TABLE", "ROWS"})

	for _, c := range counts {
		tp.AddField(c.Table)
		tp.AddField(strconv.FormatInt(c.Rows, 10))
		tp.EndRow()
	}

	if err := tp.Render(); err != nil {
		return err
	}

	if stats == nil {
		return nil
	}

	fmt.Fprintf(f.out, "\nHistory: %d answers, %.2f MB", stats.TotalAnswers, stats.DatabaseSizeMB)

	if !stats.LastAnswerTime.IsZero() {
		fmt.Fprintf(f.out, ", last %s", humanizeAge(stats.LastAnswerTime, time.Now()))
	}

	fmt.Fprintln(f.out)

	if len(stats.OutcomeBreakdown) > 0 {
		fmt.Fprintf(f.out, "Outcomes: %s\n", formatBreakdown(stats.OutcomeBreakdown))
	}

	return nil
}

// History prints history entries, newest first as given
func (f *Formatter) History(entries []storage.HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(f.out, "No history yet.")
		return nil
	}

	now := time.Now()

	tp := f.table()
	tp.AddHeader([]string{"WHEN", "ROLE", "OUTCOME", "ROWS", "QUESTION", "SQL"})

	for _, e := range entries {
		tp.AddField(humanizeAge(e.CreatedAt, now))
		tp.AddField(e.Role)
		tp.AddField(e.Outcome)
		tp.AddField(strconv.Itoa(e.RowCount))
		tp.AddField(e.Question)

		sql := e.SQL
		if sql == "" {
			sql = "-"
		}

		tp.AddField(sql)
		tp.EndRow()
	}

	return tp.Render()
}

// JSON writes v as indented JSON
func (f *Formatter) JSON(v interface{}) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// FormatValue renders one database value for display
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return nullText
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func formatBreakdown(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	// largest first, then by name
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}

		return keys[i] < keys[j]
	})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}

	return strings.Join(parts, ", ")
}

// humanizeAge converts a time to a human-readable age string
func humanizeAge(t, now time.Time) string {
	if t.IsZero() {
		return "?"
	}

	duration := now.Sub(t)
	if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes < 1 {
			return "just now"
		}

		return fmt.Sprintf("%d min ago", minutes)
	}

	days := int(duration.Hours() / 24)

	switch {
	case days < 1:
		return fmt.Sprintf("%d hours ago", int(duration.Hours()))
	case days == 1:
		return "1 day ago"
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	case days < 365:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}

		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}

	return fmt.Sprintf("%d years ago", years)
}
