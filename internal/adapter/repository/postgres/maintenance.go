package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
)

// PurgeOlderThan deletes rows whose extracted_at precedes now minus
// retention, table by table. One table's failure is logged and does not
// block the others; the returned count covers the deletions that succeeded.
func (s *RecordStore) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	var purged int64

	for _, table := range domain.ManagedTables {
		query := fmt.Sprintf("DELETE FROM %s WHERE extracted_at < $1", table)
		result, err := s.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			s.logger.Error("cleanup failed for table", "table", table, "error", err)
			continue
		}
		n, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("could not count purged rows", "table", table, "error", err)
			continue
		}
		purged += n
		s.logger.Info("purged old rows", "table", table, "rows", n, "cutoff", cutoff)
	}
	return purged, nil
}

// RebuildAggregateViews drops and recreates the two derived views as one
// transaction. Views read fresh data on every query, so concurrent appends
// during a rebuild are fine; concurrent rebuilds are not.
func (s *RecordStore) RebuildAggregateViews(ctx context.Context) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	statements := []string{
		"DROP VIEW IF EXISTS hourly_metrics",
		"DROP VIEW IF EXISTS realtime_dashboard",
		createHourlyMetricsView,
		createRealtimeDashboardView,
	}
	for _, stmt := range statements {
		if _, err := txn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild views: %w", err)
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	s.logger.Info("aggregate views rebuilt")
	return nil
}

// hourly_metrics unions the three row-level sources, zero-filling the
// metrics a source does not carry, then sums per hour and report type.
const createHourlyMetricsView = `
	CREATE VIEW hourly_metrics AS
	SELECT
		DATE_TRUNC('hour', extracted_at) AS hour,
		report_type,
		SUM(active_users)      AS total_active_users,
		SUM(screen_page_views) AS total_page_views,
		SUM(key_events)        AS total_conversions
	FROM (
		SELECT extracted_at, report_type,
			active_users,
			screen_page_views,
			0::double precision AS key_events
		FROM active_users_by_page
		UNION ALL
		SELECT extracted_at, report_type,
			0::double precision AS active_users,
			0::double precision AS screen_page_views,
			COALESCE(key_events, 0) AS key_events
		FROM conversions
		UNION ALL
		SELECT extracted_at, report_type,
			active_users,
			0::double precision AS screen_page_views,
			0::double precision AS key_events
		FROM traffic_sources
	) x
	GROUP BY 1, 2
	ORDER BY hour DESC`

const createRealtimeDashboardView = `
	CREATE VIEW realtime_dashboard AS
	SELECT
		unified_screen_name AS page,
		country,
		SUM(active_users)      AS active_users,
		SUM(screen_page_views) AS page_views,
		MAX(extracted_at)      AS extracted_at
	FROM active_users_by_page
	WHERE extracted_at >= NOW() - INTERVAL '30 minutes'
	GROUP BY unified_screen_name, country
	ORDER BY extracted_at DESC, active_users DESC`
