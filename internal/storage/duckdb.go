package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/askdb/internal/logging"
)

// DefaultHistoryLimit caps List when no limit is given
const DefaultHistoryLimit = 20

// HistoryStore implements HistoryRepository on DuckDB
type HistoryStore struct {
	db   *sql.DB
	path string
}

var _ HistoryRepository = (*HistoryStore)(nil)

// NewHistoryStore opens (creating if needed) the history database at dbPath
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	return &HistoryStore{db: db, path: dbPath}, nil
}

// Initialize brings the schema to the latest migration
func (s *HistoryStore) Initialize(ctx context.Context) error {
	migrationManager := NewMigrationManager(s.db)

	needsMigration, currentVersion, latestVersion, err := migrationManager.NeedsMigration(ctx)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if !needsMigration {
		return nil
	}

	logging.Debugf("history schema update required (v%d -> v%d)", currentVersion, latestVersion)

	return migrationManager.MigrateUp(ctx)
}

// Record stores entry, assigning ID and CreatedAt when they are empty
func (s *HistoryStore) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	entry.CreatedAt = entry.CreatedAt.UTC()

	insertSQL := `
	INSERT INTO answer_history (
		id, request_id, role, question, sql_text, message, outcome, reason,
		row_count, provider, used_context, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, insertSQL,
		entry.ID,
		entry.RequestID,
		entry.Role,
		entry.Question,
		entry.SQL,
		entry.Message,
		entry.Outcome,
		entry.Reason,
		entry.RowCount,
		entry.Provider,
		entry.UsedContext,
		entry.DurationMs,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}

	return nil
}

// List returns entries newest first
func (s *HistoryStore) List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
	SELECT id, request_id, role, question,
		   COALESCE(sql_text, '') AS sql_text,
		   COALESCE(message, '') AS message,
		   outcome,
		   COALESCE(reason, '') AS reason,
		   COALESCE(row_count, 0) AS row_count,
		   COALESCE(provider, '') AS provider,
		   COALESCE(used_context, false) AS used_context,
		   COALESCE(duration_ms, 0) AS duration_ms,
		   created_at
	FROM answer_history`

	var args []interface{}

	if role := strings.TrimSpace(filter.Role); role != "" {
		query += "\n\tWHERE lower(role) = lower(?)"
		args = append(args, role)
	}

	query += "\n\tORDER BY created_at DESC, id\n\tLIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry

	for rows.Next() {
		var e HistoryEntry

		err := rows.Scan(
			&e.ID, &e.RequestID, &e.Role, &e.Question, &e.SQL, &e.Message,
			&e.Outcome, &e.Reason, &e.RowCount, &e.Provider, &e.UsedContext,
			&e.DurationMs, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of entries for role, or all entries when role is empty
func (s *HistoryStore) Count(ctx context.Context, role string) (int, error) {
	var (
		count int
		err   error
	)

	if role = strings.TrimSpace(role); role == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM answer_history").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM answer_history WHERE lower(role) = lower(?)", role).Scan(&count)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}

	return count, nil
}

// GetStats returns totals and per-outcome and per-role breakdowns
func (s *HistoryStore) GetStats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}

	total, err := s.Count(ctx, "")
	if err != nil {
		return nil, err
	}

	stats.TotalAnswers = total

	var last sql.NullTime

	err = s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM answer_history").Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to get last answer time: %w", err)
	}

	if last.Valid {
		stats.LastAnswerTime = last.Time
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	stats.OutcomeBreakdown, err = s.breakdown(ctx, "outcome")
	if err != nil {
		return nil, err
	}

	stats.RoleBreakdown, err = s.breakdown(ctx, "role")
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// breakdown counts entries grouped by a fixed column name
func (s *HistoryStore) breakdown(ctx context.Context, column string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, COUNT(*) FROM answer_history GROUP BY %s", column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s breakdown: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			key   string
			count int
		)

		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}

		counts[key] = count
	}

	return counts, rows.Err()
}

// Clear removes every history entry
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM answer_history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// Path returns the database file path
func (s *HistoryStore) Path() string {
	return s.path
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
