package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
)

// MockReportSource is a mock implementation of domain.ReportSource for testing.
type MockReportSource struct {
	mu sync.Mutex

	CredentialsErr error

	ActiveUsersResult    []domain.Record
	EventsResult         []domain.Record
	ConversionsResult    []domain.Record
	TrafficSourcesResult []domain.Record
	OverviewResult       []domain.Record

	Calls []string
}

func (m *MockReportSource) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
}

func (m *MockReportSource) VerifyCredentials(ctx context.Context) error {
	m.record("VerifyCredentials")
	return m.CredentialsErr
}

func (m *MockReportSource) ActiveUsersByPage(ctx context.Context) []domain.Record {
	m.record("ActiveUsersByPage")
	return m.ActiveUsersResult
}

func (m *MockReportSource) EventsByPage(ctx context.Context) []domain.Record {
	m.record("EventsByPage")
	return m.EventsResult
}

func (m *MockReportSource) Conversions(ctx context.Context) []domain.Record {
	m.record("Conversions")
	return m.ConversionsResult
}

func (m *MockReportSource) TrafficSources(ctx context.Context) []domain.Record {
	m.record("TrafficSources")
	return m.TrafficSourcesResult
}

func (m *MockReportSource) Overview(ctx context.Context) []domain.Record {
	m.record("Overview")
	return m.OverviewResult
}

// MockRecordStore is a mock implementation of domain.RecordStore for testing.
type MockRecordStore struct {
	mu sync.Mutex

	Appended      map[string][]domain.Record
	AppendErr     error
	AppendErrFor  map[string]error
	EnsureErr     error
	RebuildErr    error
	RebuildCalls  int
	PurgeCalls    int
	PurgedRows    int64
	PurgeRet      time.Duration
	StatsResult   map[string]domain.TableStats
	StatusResult  domain.DatabaseStatus
	LatestResult  []map[string]any
	LatestErr     error
	StatusCalls   int
	SummaryCalls  int
}

func (m *MockRecordStore) EnsureSchema(ctx context.Context) error {
	return m.EnsureErr
}

func (m *MockRecordStore) Append(ctx context.Context, table string, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.AppendErrFor[table]; ok {
		return err
	}
	if m.AppendErr != nil {
		return m.AppendErr
	}
	if m.Appended == nil {
		m.Appended = make(map[string][]domain.Record)
	}
	m.Appended[table] = append(m.Appended[table], records...)
	return nil
}

func (m *MockRecordStore) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurgeCalls++
	m.PurgeRet = retention
	return m.PurgedRows, nil
}

func (m *MockRecordStore) RebuildAggregateViews(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RebuildCalls++
	return m.RebuildErr
}

func (m *MockRecordStore) SummaryStats(ctx context.Context) map[string]domain.TableStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryCalls++
	return m.StatsResult
}

func (m *MockRecordStore) StatusCheck(ctx context.Context) domain.DatabaseStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls++
	if m.StatusResult.Status == "" {
		return domain.DatabaseStatus{Status: "ok"}
	}
	return m.StatusResult
}

func (m *MockRecordStore) LatestRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	return m.LatestResult, nil
}

// MockRunLock is a mock implementation of domain.RunLock for testing.
type MockRunLock struct {
	mu           sync.Mutex
	Held         bool
	AcquireErr   error
	AcquireCalls int
	ReleaseCalls int
}

func (m *MockRunLock) Acquire(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireCalls++
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	return !m.Held, nil
}

func (m *MockRunLock) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls++
	return nil
}
