package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// ErrNotFound is returned by Get for an unknown row id.
var ErrNotFound = errors.New("record not found")

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	RequestID    string
	Provider     string
	Model        string
	Purpose      string
	Streamed     bool
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorKind    string
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored ledger row.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
}

// ModelStats aggregates ledger rows per provider model.
type ModelStats struct {
	Model        string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// LLMEventRepo implements EventRepo on the llm_requests table.
type LLMEventRepo struct {
	drv *entsql.Driver
	now func() time.Time
}

func (r *LLMEventRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *LLMEventRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

func (r *LLMEventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := r.builder().Insert(llmRequestsTable).
		Columns("request_id", "timestamp", "provider", "model", "purpose", "streamed",
			"input_tokens", "output_tokens", "latency_ms", "success",
			"error_kind", "error_message", "request_body", "response_body").
		Values(data.RequestID, r.clock(), data.Provider, data.Model, data.Purpose, data.Streamed,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorKind, data.ErrorMessage, data.RequestBody, data.ResponseBody).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

var eventColumns = []string{
	"id", "timestamp", "request_id", "provider", "model", "purpose", "streamed",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_kind", "error_message", "request_body", "response_body",
}

// List returns events newest first.
func (r *LLMEventRepo) List(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	b := r.builder()
	t := b.Table(llmRequestsTable)
	sel := b.Select(eventColumns...).From(t).OrderBy(entsql.Desc(t.C("id")))
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(t.C("timestamp"), opts.From.UTC()))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM request events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		ev, err := scanEvent(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Get returns a single event by id.
func (r *LLMEventRepo) Get(ctx context.Context, id int) (*LLMRequestEvent, error) {
	b := r.builder()
	t := b.Table(llmRequestsTable)
	query, args := b.Select(eventColumns...).From(t).Where(entsql.EQ(t.C("id"), id)).Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM request event %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	ev, err := scanEvent(&rows)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Stats aggregates events per model, busiest model first.
func (r *LLMEventRepo) Stats(ctx context.Context) ([]ModelStats, error) {
	b := r.builder()
	t := b.Table(llmRequestsTable)
	query, args := b.Select(
		t.C("model"),
		entsql.As(entsql.Count("*"), "requests"),
		entsql.As("SUM(CASE WHEN success THEN 0 ELSE 1 END)", "failures"),
		entsql.As(entsql.Sum(t.C("input_tokens")), "input_tokens"),
		entsql.As(entsql.Sum(t.C("output_tokens")), "output_tokens"),
		entsql.As(entsql.Avg(t.C("latency_ms")), "avg_latency"),
	).From(t).GroupBy(t.C("model")).OrderBy(entsql.Desc("requests")).Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("aggregate LLM request events: %w", err)
	}
	defer rows.Close()

	var out []ModelStats
	for rows.Next() {
		var s ModelStats
		var avg sql.NullFloat64
		if err := rows.Scan(&s.Model, &s.Requests, &s.Failures, &s.InputTokens, &s.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		s.AvgLatencyMs = avg.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanEvent(rows *entsql.Rows) (LLMRequestEvent, error) {
	var ev LLMRequestEvent
	err := rows.Scan(
		&ev.ID, &ev.Timestamp, &ev.RequestID, &ev.Provider, &ev.Model, &ev.Purpose, &ev.Streamed,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success,
		&ev.ErrorKind, &ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody,
	)
	if err != nil {
		return ev, fmt.Errorf("scan LLM request event: %w", err)
	}
	return ev, nil
}
