package domain

import (
	"context"
	"time"
)

// ReportSource issues the five realtime report queries. Each query suppresses
// request failures: a failed or empty report yields an empty record set, and
// the failure is logged and counted rather than propagated, so one report
// type's outage never blocks the others. VerifyCredentials is the only call
// that surfaces connectivity/auth problems directly.
type ReportSource interface {
	VerifyCredentials(ctx context.Context) error
	ActiveUsersByPage(ctx context.Context) []Record
	EventsByPage(ctx context.Context) []Record
	Conversions(ctx context.Context) []Record
	TrafficSources(ctx context.Context) []Record
	Overview(ctx context.Context) []Record
}

// RecordStore owns all persistence for the managed tables: schema, bulk
// appends, retention, derived views, and diagnostics.
type RecordStore interface {
	// EnsureSchema creates the managed tables and their indexes if absent.
	// Safe to call on every process start.
	EnsureSchema(ctx context.Context) error

	// Append bulk-inserts a record batch into table as one transaction.
	// Empty input is a no-op. A failure applies nothing from the batch.
	Append(ctx context.Context, table string, records []Record) error

	// PurgeOlderThan deletes rows extracted before now minus retention from
	// every managed table. Per-table failures are logged and do not block
	// the remaining tables; the returned count covers what succeeded.
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error)

	// RebuildAggregateViews drops and recreates the derived views. Callers
	// treat failure as non-fatal.
	RebuildAggregateViews(ctx context.Context) error

	// SummaryStats reports per-table row counts and extraction bounds. A
	// failing table gets an error marker entry instead of failing the call.
	SummaryStats(ctx context.Context) map[string]TableStats

	// StatusCheck lists base tables with row counts. Never fails; errors are
	// folded into the returned status.
	StatusCheck(ctx context.Context) DatabaseStatus

	// LatestRows returns up to limit most recently extracted rows from a
	// managed table, newest first.
	LatestRows(ctx context.Context, table string, limit int) ([]map[string]any, error)
}

// RunLock serializes pipeline runs so a slow run and the next scheduler tick
// cannot mutate schema or views concurrently.
type RunLock interface {
	// Acquire returns false without error when another run holds the lock.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// TableStats summarizes one managed table for the pipeline summary.
type TableStats struct {
	TotalRecords   int64
	LatestUpdate   *time.Time
	EarliestRecord *time.Time
	Err            string
}

// DatabaseStatus is the structured result of a status check.
type DatabaseStatus struct {
	Status  string // "ok" or "error"
	Tables  map[string]int64
	Message string
}

// TaskStatus is the outcome category of a single pipeline task.
type TaskStatus string

const (
	StatusSuccess TaskStatus = "success"
	StatusNoData  TaskStatus = "no_data"
	StatusError   TaskStatus = "error"
	// StatusSkipped marks a task that never ran because its gate did not
	// pass, e.g. an extraction after a failed credential check.
	StatusSkipped TaskStatus = "skipped"
)

// TaskResult is the structured outcome a pipeline task reports back to the
// scheduler boundary.
type TaskResult struct {
	Status  TaskStatus
	Table   string
	Records int
	Err     string
}

// PipelineReport aggregates the outcomes of one pipeline run.
type PipelineReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Tasks     map[string]TaskResult
	Database  DatabaseStatus
	Summary   map[string]TableStats
}
