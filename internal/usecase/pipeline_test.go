package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
	"github.com/user/ga4-pipeline/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func populatedSource() *mocks.MockReportSource {
	now := time.Now()
	return &mocks.MockReportSource{
		ActiveUsersResult: []domain.Record{
			domain.ActiveUsersByPage{UnifiedScreenName: "/home", Country: "US", ActiveUsers: 5, ScreenPageViews: 10, ReportType: domain.ReportActiveUsersByPage, ExtractedAt: now},
		},
		EventsResult: []domain.Record{
			domain.EventsByPage{UnifiedScreenName: "/home", EventName: "click", EventCount: 3, ReportType: domain.ReportEventsByPage, ExtractedAt: now},
		},
		ConversionsResult: []domain.Record{
			domain.Conversion{EventName: "purchase", KeyEvents: 2, ReportType: domain.ReportConversions, ExtractedAt: now},
		},
		TrafficSourcesResult: []domain.Record{
			domain.TrafficSource{Source: "google", Medium: "organic", Campaign: domain.NotSet, ActiveUsers: 4, ReportType: domain.ReportTrafficSources, ExtractedAt: now},
		},
		OverviewResult: []domain.Record{
			domain.Overview{ActiveUsers: 9, ScreenPageViews: 20, KeyEvents: 2, EventCount: 15, ReportType: domain.ReportOverview, ExtractedAt: now},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	retention := 24 * time.Hour

	t.Run("Successful Run", func(t *testing.T) {
		source := populatedSource()
		store := &mocks.MockRecordStore{}
		pipeline := NewPipeline(source, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, table := range domain.ManagedTables {
			if len(store.Appended[table]) != 1 {
				t.Errorf("expected 1 record appended to %s, got %d", table, len(store.Appended[table]))
			}
		}
		for _, name := range extractionTasks {
			if got := report.Tasks[name].Status; got != domain.StatusSuccess {
				t.Errorf("task %s status = %q, want success", name, got)
			}
		}
		if store.RebuildCalls != 1 {
			t.Errorf("expected 1 view rebuild, got %d", store.RebuildCalls)
		}
		if store.PurgeCalls != 1 {
			t.Errorf("expected 1 cleanup, got %d", store.PurgeCalls)
		}
		if store.PurgeRet != retention {
			t.Errorf("cleanup retention = %v, want %v", store.PurgeRet, retention)
		}
		if store.StatusCalls != 1 || store.SummaryCalls != 1 {
			t.Errorf("expected status and summary to run once, got %d/%d", store.StatusCalls, store.SummaryCalls)
		}
		if report.RunID == "" {
			t.Error("expected run ID to be assigned")
		}
		if report.Database.Status != "ok" {
			t.Errorf("database status = %q, want ok", report.Database.Status)
		}
	})

	t.Run("No Data Everywhere", func(t *testing.T) {
		store := &mocks.MockRecordStore{}
		pipeline := NewPipeline(&mocks.MockReportSource{}, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, name := range extractionTasks {
			if got := report.Tasks[name].Status; got != domain.StatusNoData {
				t.Errorf("task %s status = %q, want no_data", name, got)
			}
		}
		// no_data is not a failure; views still rebuild
		if store.RebuildCalls != 1 {
			t.Errorf("expected view rebuild on no-data run, got %d", store.RebuildCalls)
		}
	})

	t.Run("One Extraction Fails", func(t *testing.T) {
		source := populatedSource()
		store := &mocks.MockRecordStore{
			AppendErrFor: map[string]error{
				domain.ReportConversions: errors.New("copy failed"),
			},
		}
		pipeline := NewPipeline(source, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err == nil {
			t.Fatal("expected an error when an extraction task fails")
		}
		if !strings.Contains(err.Error(), TaskExtractConversions) {
			t.Errorf("error should name the failed task: %v", err)
		}
		if got := report.Tasks[TaskExtractConversions].Status; got != domain.StatusError {
			t.Errorf("conversions status = %q, want error", got)
		}
		// Siblings and maintenance are unaffected.
		if got := report.Tasks[TaskExtractActiveUsers].Status; got != domain.StatusSuccess {
			t.Errorf("active users status = %q, want success", got)
		}
		if store.RebuildCalls != 1 {
			t.Errorf("expected view rebuild with partial success, got %d", store.RebuildCalls)
		}
		if store.PurgeCalls != 1 {
			t.Errorf("expected cleanup to run, got %d", store.PurgeCalls)
		}
	})

	t.Run("All Extractions Fail", func(t *testing.T) {
		source := populatedSource()
		store := &mocks.MockRecordStore{AppendErr: errors.New("database gone")}
		pipeline := NewPipeline(source, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err == nil {
			t.Fatal("expected an error when every extraction fails")
		}
		if store.RebuildCalls != 0 {
			t.Errorf("expected no view rebuild when all extractions fail, got %d", store.RebuildCalls)
		}
		if got := report.Tasks[TaskCreateViews].Status; got != domain.StatusNoData {
			t.Errorf("views status = %q, want no_data", got)
		}
		if store.PurgeCalls != 1 {
			t.Errorf("cleanup should still run, got %d calls", store.PurgeCalls)
		}
	})

	t.Run("View Rebuild Failure Is Non-Fatal", func(t *testing.T) {
		source := populatedSource()
		store := &mocks.MockRecordStore{RebuildErr: errors.New("view locked")}
		pipeline := NewPipeline(source, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err != nil {
			t.Fatalf("rebuild failure must not fail the run: %v", err)
		}
		if got := report.Tasks[TaskCreateViews].Status; got != domain.StatusError {
			t.Errorf("views status = %q, want error", got)
		}
		if store.PurgeCalls != 1 {
			t.Errorf("cleanup should still run, got %d calls", store.PurgeCalls)
		}
	})

	t.Run("Credential Failure Skips Extractions Only", func(t *testing.T) {
		source := &mocks.MockReportSource{CredentialsErr: errors.New("key file missing")}
		store := &mocks.MockRecordStore{}
		pipeline := NewPipeline(source, store, nil, retention, testLogger(), nil)

		report, err := pipeline.Run(context.Background())
		if err == nil {
			t.Fatal("expected an error on credential failure")
		}
		if got := report.Tasks[TaskCheckCredentials].Status; got != domain.StatusError {
			t.Errorf("credentials status = %q, want error", got)
		}
		for _, name := range extractionTasks {
			if got := report.Tasks[name].Status; got != domain.StatusSkipped {
				t.Errorf("task %s status = %q, want skipped", name, got)
			}
		}
		if len(store.Appended) != 0 {
			t.Errorf("no extraction should have run, appended to %d tables", len(store.Appended))
		}
		for _, name := range []string{"ActiveUsersByPage", "EventsByPage", "Conversions", "TrafficSources", "Overview"} {
			for _, call := range source.Calls {
				if call == name {
					t.Errorf("report query %s ran despite credential failure", name)
				}
			}
		}
		// No extraction succeeded, so views stay as they are...
		if store.RebuildCalls != 0 {
			t.Errorf("expected no view rebuild, got %d", store.RebuildCalls)
		}
		// ...but cleanup, status check, and summary always run.
		if store.PurgeCalls != 1 {
			t.Errorf("cleanup should run despite credential failure, got %d calls", store.PurgeCalls)
		}
		if store.StatusCalls != 1 || store.SummaryCalls != 1 {
			t.Errorf("status/summary should run despite credential failure, got %d/%d", store.StatusCalls, store.SummaryCalls)
		}
	})

	t.Run("Run Lock Contention", func(t *testing.T) {
		source := populatedSource()
		store := &mocks.MockRecordStore{}
		lock := &mocks.MockRunLock{Held: true}
		pipeline := NewPipeline(source, store, lock, retention, testLogger(), nil)

		_, err := pipeline.Run(context.Background())
		if !errors.Is(err, ErrRunSkipped) {
			t.Fatalf("expected ErrRunSkipped, got %v", err)
		}
		if len(source.Calls) != 0 {
			t.Errorf("no work should happen on a skipped run, got calls %v", source.Calls)
		}
		if lock.ReleaseCalls != 0 {
			t.Errorf("a lock we never held must not be released, got %d releases", lock.ReleaseCalls)
		}
	})

	t.Run("Run Lock Released", func(t *testing.T) {
		source := populatedSource()
		lock := &mocks.MockRunLock{}
		pipeline := NewPipeline(source, &mocks.MockRecordStore{}, lock, retention, testLogger(), nil)

		if _, err := pipeline.Run(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if lock.AcquireCalls != 1 || lock.ReleaseCalls != 1 {
			t.Errorf("lock acquire/release = %d/%d, want 1/1", lock.AcquireCalls, lock.ReleaseCalls)
		}
	})
}
