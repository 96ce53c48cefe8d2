package storage

import (
	"context"
	"time"
)

// HistoryRepository persists answered questions
type HistoryRepository interface {
	Initialize(ctx context.Context) error
	Record(ctx context.Context, entry *HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
	Count(ctx context.Context, role string) (int, error)
	GetStats(ctx context.Context) (*HistoryStats, error)
	Clear(ctx context.Context) error
	Close() error
}

// HistoryEntry is one answered question as stored in the history database
type HistoryEntry struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	Role        string    `json:"role"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql,omitempty"`
	Message     string    `json:"message"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	RowCount    int       `json:"row_count"`
	Provider    string    `json:"provider,omitempty"`
	UsedContext bool      `json:"used_context"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryFilter narrows List. An empty Role matches every role; Limit <= 0
// uses DefaultHistoryLimit.
type HistoryFilter struct {
	Role  string
	Limit int
}

// HistoryStats summarizes the history database
type HistoryStats struct {
	TotalAnswers     int            `json:"total_answers"`
	OutcomeBreakdown map[string]int `json:"outcome_breakdown"`
	RoleBreakdown    map[string]int `json:"role_breakdown"`
	LastAnswerTime   time.Time      `json:"last_answer_time"`
	DatabaseSizeMB   float64        `json:"database_size_mb"`
}

// TableCount is the row count of one business table
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}
