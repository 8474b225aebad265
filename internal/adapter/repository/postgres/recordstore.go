package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/user/ga4-pipeline/internal/domain"
)

// RecordStore implements domain.RecordStore against PostgreSQL. It holds the
// shared pool but every operation acquires, uses, and releases its work
// within the call; there is no cross-call state.
type RecordStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordStore creates a PostgreSQL-backed record store.
func NewRecordStore(db *sql.DB, logger *slog.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger.With("component", "record_store")}
}

// Table DDL. Column sets match the record types in domain; every table gets
// the surrogate key, the derived created_date, and an extracted_at index.
var tableDDL = map[string]string{
	domain.ReportActiveUsersByPage: `
		CREATE TABLE IF NOT EXISTS active_users_by_page (
			id SERIAL PRIMARY KEY,
			unified_screen_name VARCHAR(500),
			country VARCHAR(100),
			active_users DOUBLE PRECISION,
			screen_page_views DOUBLE PRECISION,
			report_type VARCHAR(100),
			extracted_at TIMESTAMP,
			created_date DATE GENERATED ALWAYS AS (DATE(extracted_at)) STORED
		)`,
	domain.ReportEventsByPage: `
		CREATE TABLE IF NOT EXISTS events_by_page (
			id SERIAL PRIMARY KEY,
			unified_screen_name VARCHAR(500),
			event_name VARCHAR(500),
			event_count DOUBLE PRECISION,
			report_type VARCHAR(100),
			extracted_at TIMESTAMP,
			created_date DATE GENERATED ALWAYS AS (DATE(extracted_at)) STORED
		)`,
	domain.ReportConversions: `
		CREATE TABLE IF NOT EXISTS conversions (
			id SERIAL PRIMARY KEY,
			event_name VARCHAR(500),
			key_events DOUBLE PRECISION,
			report_type VARCHAR(100),
			extracted_at TIMESTAMP,
			created_date DATE GENERATED ALWAYS AS (DATE(extracted_at)) STORED
		)`,
	domain.ReportTrafficSources: `
		CREATE TABLE IF NOT EXISTS traffic_sources (
			id SERIAL PRIMARY KEY,
			source VARCHAR(500),
			medium VARCHAR(500),
			campaign VARCHAR(500),
			active_users DOUBLE PRECISION,
			report_type VARCHAR(100),
			extracted_at TIMESTAMP,
			created_date DATE GENERATED ALWAYS AS (DATE(extracted_at)) STORED
		)`,
	domain.ReportOverview: `
		CREATE TABLE IF NOT EXISTS overview (
			id SERIAL PRIMARY KEY,
			active_users DOUBLE PRECISION,
			screen_page_views DOUBLE PRECISION,
			key_events DOUBLE PRECISION,
			event_count DOUBLE PRECISION,
			report_type VARCHAR(100),
			extracted_at TIMESTAMP,
			created_date DATE GENERATED ALWAYS AS (DATE(extracted_at)) STORED
		)`,
}

// EnsureSchema creates the managed tables and their extracted_at indexes if
// they do not exist. Safe to call on every process start. Must not run
// concurrently with RebuildAggregateViews.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // no-op after Commit

	for _, table := range domain.ManagedTables {
		if _, err := txn.ExecContext(ctx, tableDDL[table]); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	for _, table := range domain.ManagedTables {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_extracted_at ON %s(extracted_at)", table, table)
		if _, err := txn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on %s: %w", table, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	s.logger.Info("schema ensured", "tables", len(domain.ManagedTables))
	return nil
}

// Append bulk-inserts a record batch into table using the COPY protocol
// inside a single transaction. Empty input is a no-op; any failure rolls
// back the whole batch.
func (s *RecordStore) Append(ctx context.Context, table string, records []domain.Record) error {
	if len(records) == 0 {
		s.logger.Info("no records to insert", "table", table)
		return nil
	}
	if !isManaged(table) {
		return fmt.Errorf("postgres: unmanaged table %q", table)
	}

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	columns := records[0].Columns()
	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return err
	}

	for _, record := range records {
		if record.Table() != table {
			_ = stmt.Close()
			return fmt.Errorf("postgres: record for table %q in batch for %q", record.Table(), table)
		}
		if _, err := stmt.ExecContext(ctx, record.Values()...); err != nil {
			_ = stmt.Close()
			return err
		}
	}

	// Flush the COPY buffer before closing.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	s.logger.Info("inserted records", "table", table, "count", len(records))
	return nil
}

func isManaged(table string) bool {
	for _, t := range domain.ManagedTables {
		if t == table {
			return true
		}
	}
	return false
}
