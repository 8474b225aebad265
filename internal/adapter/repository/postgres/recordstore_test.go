package postgres

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
)

func testStore() *RecordStore {
	return NewRecordStore(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAppendEmptyBatchIsNoOp(t *testing.T) {
	store := testStore()
	if err := store.Append(context.Background(), domain.ReportOverview, nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestAppendRejectsUnmanagedTable(t *testing.T) {
	store := testStore()
	records := []domain.Record{domain.Overview{ReportType: domain.ReportOverview, ExtractedAt: time.Now()}}
	err := store.Append(context.Background(), "users; DROP TABLE users", records)
	if err == nil {
		t.Fatal("expected error for unmanaged table")
	}
	if !strings.Contains(err.Error(), "unmanaged table") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLatestRowsRejectsUnmanagedTable(t *testing.T) {
	store := testStore()
	if _, err := store.LatestRows(context.Background(), "pg_catalog.pg_tables", 10); err == nil {
		t.Fatal("expected error for unmanaged table")
	}
}

func TestTableDDLCoversManagedTables(t *testing.T) {
	for _, table := range domain.ManagedTables {
		ddl, ok := tableDDL[table]
		if !ok {
			t.Errorf("no DDL for managed table %s", table)
			continue
		}
		for _, column := range []string{"report_type", "extracted_at", "created_date"} {
			if !strings.Contains(ddl, column) {
				t.Errorf("table %s missing column %s", table, column)
			}
		}
	}
}

func TestRecordColumnsMatchValues(t *testing.T) {
	now := time.Now()
	records := []domain.Record{
		domain.ActiveUsersByPage{ReportType: domain.ReportActiveUsersByPage, ExtractedAt: now},
		domain.EventsByPage{ReportType: domain.ReportEventsByPage, ExtractedAt: now},
		domain.Conversion{ReportType: domain.ReportConversions, ExtractedAt: now},
		domain.TrafficSource{ReportType: domain.ReportTrafficSources, ExtractedAt: now},
		domain.Overview{ReportType: domain.ReportOverview, ExtractedAt: now},
	}
	for _, record := range records {
		if len(record.Columns()) != len(record.Values()) {
			t.Errorf("%s: %d columns but %d values", record.Table(), len(record.Columns()), len(record.Values()))
		}
		if !isManaged(record.Table()) {
			t.Errorf("%s is not a managed table", record.Table())
		}
	}
}
