package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/user/ga4-pipeline/internal/domain"
)

// SummaryStats reports row count and extraction bounds per managed table. A
// table whose query fails gets an error marker entry; the call itself never
// fails.
func (s *RecordStore) SummaryStats(ctx context.Context) map[string]domain.TableStats {
	stats := make(map[string]domain.TableStats, len(domain.ManagedTables))

	for _, table := range domain.ManagedTables {
		query := fmt.Sprintf(
			"SELECT COUNT(*), MAX(extracted_at), MIN(extracted_at) FROM %s", table)

		var count int64
		var latest, earliest sql.NullTime
		if err := s.db.QueryRowContext(ctx, query).Scan(&count, &latest, &earliest); err != nil {
			s.logger.Warn("could not get stats for table", "table", table, "error", err)
			stats[table] = domain.TableStats{Err: err.Error()}
			continue
		}

		entry := domain.TableStats{TotalRecords: count}
		if latest.Valid {
			t := latest.Time
			entry.LatestUpdate = &t
		}
		if earliest.Valid {
			t := earliest.Time
			entry.EarliestRecord = &t
		}
		stats[table] = entry
	}
	return stats
}

// StatusCheck lists the base tables in the public schema with their row
// counts. Failures are folded into an error status rather than returned.
func (s *RecordStore) StatusCheck(ctx context.Context) domain.DatabaseStatus {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		s.logger.Error("database status check failed", "error", err)
		return domain.DatabaseStatus{Status: "error", Message: err.Error()}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.DatabaseStatus{Status: "error", Message: err.Error()}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return domain.DatabaseStatus{Status: "error", Message: err.Error()}
	}

	counts := make(map[string]int64, len(names))
	for _, name := range names {
		var count int64
		// table_name comes from the catalog, not user input
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(name))).Scan(&count); err != nil {
			s.logger.Error("row count failed", "table", name, "error", err)
			return domain.DatabaseStatus{Status: "error", Message: err.Error()}
		}
		counts[name] = count
	}

	return domain.DatabaseStatus{Status: "ok", Tables: counts}
}

// LatestRows returns up to limit most recently extracted rows from a managed
// table as generic column maps, for diagnostics.
func (s *RecordStore) LatestRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if !isManaged(table) {
		return nil, fmt.Errorf("postgres: unmanaged table %q", table)
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY extracted_at DESC LIMIT $1", table)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
