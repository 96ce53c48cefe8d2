// Package assistant answers natural language questions for a role: it
// retrieves schema context, generates candidate statements, authorizes and
// validates the chosen one and only then runs it.
package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/query"
	"github.com/kyleking/askdb/internal/schemaindex"
	"github.com/kyleking/askdb/internal/sqlguard"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/types"
)

// Outcome is the terminal state of one question
type Outcome string

const (
	OutcomeSuccess               Outcome = "success"
	OutcomeEmptyResult           Outcome = "empty_result"
	OutcomeNoAuthorizedCandidate Outcome = "no_authorized_candidate"
	OutcomeValidationRejected    Outcome = "validation_rejected"
	OutcomeExecutionFailed       Outcome = "execution_failed"
)

// IsFailure reports whether the outcome is one of the refusal or error states
func (o Outcome) IsFailure() bool {
	return o != OutcomeSuccess && o != OutcomeEmptyResult
}

// MessageNotAllowed is returned when no candidate passes authorization
const MessageNotAllowed = "You are not allowed to access the requested data or the query could not be generated."

// Answer is the result of AnswerQuestion. SQL is empty when no candidate was
// authorized; Rows is set only when the statement ran.
type Answer struct {
	RequestID   string             `json:"request_id"`
	Role        string             `json:"role"`
	Question    string             `json:"question"`
	SQL         string             `json:"sql,omitempty"`
	Message     string             `json:"message"`
	Rows        *types.QueryResult `json:"rows,omitempty"`
	Outcome     Outcome            `json:"outcome"`
	Verdict     *sqlguard.Verdict  `json:"verdict,omitempty"`
	Provider    string             `json:"provider,omitempty"`
	UsedContext bool               `json:"used_context"`
	Duration    time.Duration      `json:"duration"`
}

// HistoryRecorder persists answers
type HistoryRecorder interface {
	Record(ctx context.Context, entry *storage.HistoryEntry) error
}

// Assistant is safe for concurrent AnswerQuestion calls
type Assistant struct {
	app     *AppContext
	history HistoryRecorder
}

// Option configures an Assistant
type Option func(*Assistant)

// WithHistory records every answer to h
func WithHistory(h HistoryRecorder) Option {
	return func(a *Assistant) {
		a.history = h
	}
}

// New creates an assistant over app
func New(app *AppContext, opts ...Option) *Assistant {
	a := &Assistant{app: app}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// candidate is one generator invocation's result
type candidate struct {
	sql         string
	provider    string
	usedContext bool
	err         error
}

// AnswerQuestion runs the whole pipeline. It never returns an error: every
// failure is a terminal Outcome with a user-facing message.
func (a *Assistant) AnswerQuestion(ctx context.Context, question, role string) *Answer {
	start := time.Now()

	answer := &Answer{
		RequestID: uuid.New().String(),
		Role:      policy.CanonicalRole(role),
		Question:  question,
	}

	logger := logging.WithFields(map[string]interface{}{
		"request_id": answer.RequestID,
		"role":       answer.Role,
	})

	access := a.app.policy.Resolve(role)
	ragContext := schemaindex.FormatContext(a.retrieve(ctx, question, access))

	req := &llm.Request{
		Question:   question,
		Access:     access,
		Catalog:    a.app.catalog,
		Dictionary: a.app.dictionary,
	}

	augmented, plain := a.generate(ctx, req, ragContext)

	chosen, ok := a.choose(access, augmented, plain)
	if !ok {
		logger.Info("no authorized candidate")
		a.finish(ctx, answer, start, OutcomeNoAuthorizedCandidate, MessageNotAllowed)

		return answer
	}

	answer.SQL = chosen.sql
	answer.Provider = chosen.provider
	answer.UsedContext = chosen.usedContext

	if verdict := a.app.guard.Validate(chosen.sql, access); !verdict.Accepted {
		logger.WithField("reason", verdict.Reason).Info("statement rejected")
		answer.Verdict = &verdict
		a.finish(ctx, answer, start, OutcomeValidationRejected, "SQL validation failed: "+verdict.Message)

		return answer
	}

	result, err := a.app.executor.Execute(ctx, chosen.sql)
	if err != nil {
		logger.WithError(err).Info("statement failed")
		a.finish(ctx, answer, start, OutcomeExecutionFailed, "Error executing SQL: "+errors.Message(err))

		return answer
	}

	answer.Rows = result

	outcome := OutcomeSuccess
	if result.IsEmpty() {
		outcome = OutcomeEmptyResult
	}

	a.finish(ctx, answer, start, outcome, query.Summarize(result, a.app.dictionary))

	return answer
}

// Context returns the top dictionary entries for question that role may
// read. Entries for other tables or columns never reach the generator.
func (a *Assistant) Context(ctx context.Context, question, role string) []schemaindex.Result {
	return a.retrieve(ctx, question, a.app.policy.Resolve(role))
}

func (a *Assistant) retrieve(ctx context.Context, question string, access policy.Access) []schemaindex.Result {
	ranked := a.app.index.Search(ctx, question, a.app.index.Len())

	results := make([]schemaindex.Result, 0, a.app.topK)
	for _, r := range ranked {
		if len(results) == a.app.topK {
			break
		}

		if access.Columns(r.Table).Allows(r.Column) {
			results = append(results, r)
		}
	}

	logging.WithFields(map[string]interface{}{
		"mode":    a.app.index.Mode(),
		"ranked":  len(ranked),
		"entries": len(results),
	}).Debug("schema context retrieved")

	return results
}

// generate runs the context-augmented and the plain request independently;
// a failure of one does not affect the other
func (a *Assistant) generate(ctx context.Context, req *llm.Request, ragContext string) (candidate, candidate) {
	var augmented, plain candidate

	g := new(errgroup.Group)
	g.SetLimit(a.app.concurrency)

	g.Go(func() error {
		augmented = a.call(ctx, req.WithContext(ragContext), ragContext != "")
		return nil
	})

	g.Go(func() error {
		plain = a.call(ctx, req, false)
		return nil
	})

	_ = g.Wait()

	return augmented, plain
}

func (a *Assistant) call(ctx context.Context, req *llm.Request, usedContext bool) candidate {
	resp, err := a.app.generator.GenerateSQL(ctx, req)
	if err != nil {
		logging.WithField("with_context", usedContext).WithError(err).Warn("SQL generation failed")
		return candidate{err: err}
	}

	return candidate{sql: resp.SQL, provider: resp.Provider, usedContext: usedContext}
}

// choose prefers the context-augmented candidate when both are authorized
func (a *Assistant) choose(access policy.Access, augmented, plain candidate) (candidate, bool) {
	for _, c := range []candidate{augmented, plain} {
		if c.err == nil && c.sql != "" && a.app.guard.IsAuthorized(c.sql, access) {
			return c, true
		}
	}

	return candidate{}, false
}

func (a *Assistant) finish(ctx context.Context, answer *Answer, start time.Time, outcome Outcome, message string) {
	answer.Outcome = outcome
	answer.Message = message
	answer.Duration = time.Since(start)

	if a.history == nil {
		return
	}

	if err := a.history.Record(ctx, historyEntry(answer)); err != nil {
		logging.WithField("request_id", answer.RequestID).WithError(err).Warn("failed to record answer history")
	}
}

func historyEntry(answer *Answer) *storage.HistoryEntry {
	entry := &storage.HistoryEntry{
		RequestID:   answer.RequestID,
		Role:        answer.Role,
		Question:    answer.Question,
		SQL:         answer.SQL,
		Message:     answer.Message,
		Outcome:     string(answer.Outcome),
		Provider:    answer.Provider,
		UsedContext: answer.UsedContext,
		DurationMs:  answer.Duration.Milliseconds(),
	}

	if answer.Verdict != nil {
		entry.Reason = string(answer.Verdict.Reason)
	}

	if answer.Rows != nil {
		entry.RowCount = answer.Rows.RowCount()
	}

	return entry
}
