package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bpradana/weave"
	"github.com/google/uuid"

	"github.com/user/ga4-pipeline/internal/adapter/metrics"
	"github.com/user/ga4-pipeline/internal/domain"
)

// Task names, stable identifiers at the scheduler boundary.
const (
	TaskCheckCredentials      = "check_credentials"
	TaskExtractActiveUsers    = "extract_active_users"
	TaskExtractEventsByPage   = "extract_events_by_page"
	TaskExtractConversions    = "extract_conversions"
	TaskExtractTrafficSources = "extract_traffic_sources"
	TaskExtractOverview       = "extract_overview"
	TaskCreateViews           = "create_aggregated_views"
	TaskCleanup               = "cleanup_old_data"
	TaskStatusCheck           = "check_database_status"
	TaskSummary               = "generate_summary"
)

var extractionTasks = []string{
	TaskExtractActiveUsers,
	TaskExtractEventsByPage,
	TaskExtractConversions,
	TaskExtractTrafficSources,
	TaskExtractOverview,
}

// ErrRunSkipped reports that another run holds the lock; the caller should
// treat the tick as skipped, not failed.
var ErrRunSkipped = errors.New("pipeline: run already in progress")

// Pipeline wires the report source and record store into the task graph:
// credential check, five parallel extractions, view rebuild, retention
// cleanup, status check, and summary.
type Pipeline struct {
	source    domain.ReportSource
	store     domain.RecordStore
	lock      domain.RunLock // nil disables run locking
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.PipelineMetrics
}

// NewPipeline creates the pipeline orchestrator. lock may be nil.
func NewPipeline(source domain.ReportSource, store domain.RecordStore, lock domain.RunLock, retention time.Duration, logger *slog.Logger, m *metrics.PipelineMetrics) *Pipeline {
	return &Pipeline{
		source:    source,
		store:     store,
		lock:      lock,
		retention: retention,
		logger:    logger.With("component", "pipeline"),
		metrics:   m,
	}
}

// Run executes one pipeline pass and reports per-task outcomes. It returns
// an error when the credential check or any extraction task fails; view
// rebuild and maintenance failures are logged and absorbed. Failed
// extractions never block their siblings, and cleanup, status check, and
// summary run no matter what happened upstream — a credential failure only
// skips the extractions themselves.
func (p *Pipeline) Run(ctx context.Context) (*domain.PipelineReport, error) {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)

	if p.lock != nil {
		acquired, err := p.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			log.Info("previous run still active, skipping")
			p.metrics.ObserveRun("skipped")
			return nil, ErrRunSkipped
		}
		defer func() {
			if err := p.lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	start := time.Now()
	log.Info("pipeline run started")

	graph := weave.NewGraph()
	handles := make(map[string]*weave.Handle[domain.TaskResult], 10)
	var buildErr error

	addTask := func(name string, run weave.TaskFunc[domain.TaskResult], opts ...weave.TaskOption) *weave.Handle[domain.TaskResult] {
		handle, err := weave.AddTask(graph, name, run, opts...)
		if err != nil && buildErr == nil {
			buildErr = err
		}
		handles[name] = handle
		return handle
	}

	// Every task reports its outcome as a value, never as a task error:
	// weave skips the dependents of a failed task, and the maintenance
	// chain must run regardless of what happened upstream.
	credentials := addTask(TaskCheckCredentials, func(ctx context.Context, _ weave.DependencyResolver) (domain.TaskResult, error) {
		if err := p.source.VerifyCredentials(ctx); err != nil {
			log.Error("credentials check failed", "error", err)
			return domain.TaskResult{Status: domain.StatusError, Err: err.Error()}, nil
		}
		return domain.TaskResult{Status: domain.StatusSuccess}, nil
	})

	// Extractions gate themselves on the credential result instead.
	extractions := make([]weave.TaskReference, 0, len(extractionTasks))
	addExtraction := func(name, table string, query func(context.Context) []domain.Record) {
		handle := addTask(name, func(ctx context.Context, deps weave.DependencyResolver) (domain.TaskResult, error) {
			creds, err := credentials.Value(deps)
			if err != nil || creds.Status == domain.StatusError {
				log.Warn("skipping extraction, credential check did not pass", "table", table)
				return domain.TaskResult{Status: domain.StatusSkipped, Table: table}, nil
			}
			return p.extract(ctx, log, table, query), nil
		}, weave.DependsOn(credentials))
		extractions = append(extractions, handle)
	}
	addExtraction(TaskExtractActiveUsers, domain.ReportActiveUsersByPage, p.source.ActiveUsersByPage)
	addExtraction(TaskExtractEventsByPage, domain.ReportEventsByPage, p.source.EventsByPage)
	addExtraction(TaskExtractConversions, domain.ReportConversions, p.source.Conversions)
	addExtraction(TaskExtractTrafficSources, domain.ReportTrafficSources, p.source.TrafficSources)
	addExtraction(TaskExtractOverview, domain.ReportOverview, p.source.Overview)

	// Rebuild only when at least one extraction came through; a rebuild
	// failure degrades the dashboards, not the pipeline.
	views := addTask(TaskCreateViews, func(ctx context.Context, deps weave.DependencyResolver) (domain.TaskResult, error) {
		succeeded := 0
		for _, name := range extractionTasks {
			result, err := handles[name].Value(deps)
			if err != nil {
				continue
			}
			if result.Status == domain.StatusSuccess || result.Status == domain.StatusNoData {
				succeeded++
			}
		}
		if succeeded == 0 {
			log.Warn("no extraction came through, skipping view rebuild")
			return domain.TaskResult{Status: domain.StatusNoData}, nil
		}
		if err := p.store.RebuildAggregateViews(ctx); err != nil {
			log.Error("aggregate view rebuild failed", "error", err)
			return domain.TaskResult{Status: domain.StatusError, Err: err.Error()}, nil
		}
		return domain.TaskResult{Status: domain.StatusSuccess}, nil
	}, weave.DependsOn(extractions...))

	cleanup := addTask(TaskCleanup, func(ctx context.Context, _ weave.DependencyResolver) (domain.TaskResult, error) {
		purged, err := p.store.PurgeOlderThan(ctx, p.retention)
		if err != nil {
			log.Error("cleanup failed", "error", err)
			return domain.TaskResult{Status: domain.StatusError, Err: err.Error()}, nil
		}
		return domain.TaskResult{Status: domain.StatusSuccess, Records: int(purged)}, nil
	}, weave.DependsOn(views))

	report := &domain.PipelineReport{
		RunID:     runID,
		StartedAt: start,
		Tasks:     make(map[string]domain.TaskResult, 10),
	}

	status := addTask(TaskStatusCheck, func(ctx context.Context, _ weave.DependencyResolver) (domain.TaskResult, error) {
		report.Database = p.store.StatusCheck(ctx)
		if report.Database.Status != "ok" {
			return domain.TaskResult{Status: domain.StatusError, Err: report.Database.Message}, nil
		}
		return domain.TaskResult{Status: domain.StatusSuccess}, nil
	}, weave.DependsOn(cleanup))

	addTask(TaskSummary, func(ctx context.Context, _ weave.DependencyResolver) (domain.TaskResult, error) {
		report.Summary = p.store.SummaryStats(ctx)
		for table, stats := range report.Summary {
			if stats.Err != "" {
				log.Warn("summary unavailable for table", "table", table, "error", stats.Err)
				continue
			}
			p.metrics.SetTableRows(table, stats.TotalRecords)
			log.Info("table summary", "table", table, "records", stats.TotalRecords, "latest", stats.LatestUpdate)
		}
		return domain.TaskResult{Status: domain.StatusSuccess}, nil
	}, weave.DependsOn(status))

	if buildErr != nil {
		return nil, fmt.Errorf("build task graph: %w", buildErr)
	}

	results, _, _ := graph.Run(ctx,
		weave.WithErrorStrategy(weave.ContinueOnError),
		weave.WithGlobalHooks(p.hooks(log)),
	)

	for name, handle := range handles {
		value, err := results.Value(handle)
		if err != nil {
			// The task never produced a result, e.g. cancellation.
			report.Tasks[name] = domain.TaskResult{Status: domain.StatusSkipped, Err: err.Error()}
			continue
		}
		if result, ok := value.(domain.TaskResult); ok {
			report.Tasks[name] = result
		}
	}
	report.Duration = time.Since(start)

	if report.Tasks[TaskCheckCredentials].Status == domain.StatusError {
		p.metrics.ObserveRun("error")
		return report, fmt.Errorf("credential check failed: %s", report.Tasks[TaskCheckCredentials].Err)
	}

	var failed []string
	for _, name := range extractionTasks {
		if report.Tasks[name].Status == domain.StatusError {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		p.metrics.ObserveRun("error")
		return report, fmt.Errorf("extraction tasks failed: %s", strings.Join(failed, ", "))
	}

	p.metrics.ObserveRun("success")
	log.Info("pipeline run finished", "duration", report.Duration)
	return report, nil
}

// extract runs one report query and loads the result. A query that yields
// nothing is a no_data outcome; only a load failure is an error.
func (p *Pipeline) extract(ctx context.Context, log *slog.Logger, table string, query func(context.Context) []domain.Record) domain.TaskResult {
	records := query(ctx)
	if len(records) == 0 {
		log.Info("no data extracted", "table", table)
		return domain.TaskResult{Status: domain.StatusNoData, Table: table}
	}
	if err := p.store.Append(ctx, table, records); err != nil {
		log.Error("failed to load records", "table", table, "error", err)
		return domain.TaskResult{Status: domain.StatusError, Table: table, Err: err.Error()}
	}
	p.metrics.AddRecordsExtracted(table, len(records))
	log.Info("records loaded", "table", table, "count", len(records))
	return domain.TaskResult{Status: domain.StatusSuccess, Table: table, Records: len(records)}
}

func (p *Pipeline) hooks(log *slog.Logger) weave.Hooks {
	return weave.Hooks{
		OnStart: func(_ context.Context, event weave.TaskEvent) {
			log.Debug("task started", "task", event.Metadata.Name)
		},
		OnFinish: func(_ context.Context, event weave.TaskEvent) {
			p.metrics.ObserveTaskDuration(event.Metadata.Name, event.Metrics.Duration)
			log.Info("task finished",
				"task", event.Metadata.Name,
				"status", string(event.Metrics.Status),
				"duration", event.Metrics.Duration,
			)
		},
	}
}
