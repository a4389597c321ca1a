package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitford/ringlead/internal/pbx"
)

// RunConfig describes one sync execution.
type RunConfig struct {
	Flow       FlowKind
	From       time.Time
	To         time.Time
	DryRun     bool
	Extensions []Extension
	Owners     []Owner
}

// SyncRun drives one execution: fetch calls for every configured extension,
// feed them through the reconciler in chronological order, and aggregate
// statistics. A single worker processes calls sequentially; serializing the
// search-then-create path is the primary duplicate-prevention mechanism.
type SyncRun struct {
	cfg     RunConfig
	source  CallSource
	crm     CrmStore
	rotator *OwnerRotator
	logger  *slog.Logger
	runID   string
}

// NewSyncRun validates configuration and prepares a run. Malformed owner or
// extension config fails here, before any fetch.
func NewSyncRun(cfg RunConfig, source CallSource, store CrmStore, logger *slog.Logger) (*SyncRun, error) {
	if len(cfg.Extensions) == 0 {
		return nil, &ValidationError{Field: "extensions", Reason: "no extensions configured"}
	}
	for i, ext := range cfg.Extensions {
		if ext.ID == "" {
			return nil, &ValidationError{
				Field:  "extensions",
				Reason: fmt.Sprintf("extension %q at position %d has no id", ext.Name, i),
			}
		}
	}

	rotator, err := NewOwnerRotator(cfg.Owners)
	if err != nil {
		return nil, err
	}

	if cfg.DryRun {
		store = newDryRunStore(store, logger)
	}

	runID := uuid.New().String()
	return &SyncRun{
		cfg:     cfg,
		source:  source,
		crm:     store,
		rotator: rotator,
		logger:  logger.With("run_id", runID, "flow", string(cfg.Flow)),
		runID:   runID,
	}, nil
}

// RunID identifies this execution in logs.
func (s *SyncRun) RunID() string { return s.runID }

// Run executes the sync and returns its statistics. Per-call failures are
// absorbed; only auth exhaustion or cancellation abort the run early, and
// even then the statistics gathered so far are returned.
func (s *SyncRun) Run(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	s.logger.Info("sync run starting",
		"from", s.cfg.From.Format(time.RFC3339),
		"to", s.cfg.To.Format(time.RFC3339),
		"extensions", len(s.cfg.Extensions),
		"dry_run", s.cfg.DryRun)

	calls, err := s.fetchAll(ctx, stats)
	stats.TotalCalls = len(calls)
	if err != nil {
		s.logger.Error("sync run aborted during fetch", "error", err)
		return stats, err
	}

	// Chronological processing keeps duplicate suppression and first-write-
	// wins semantics meaningful across extensions.
	sort.SliceStable(calls, func(i, j int) bool {
		if calls[i].StartTime.Equal(calls[j].StartTime) {
			return calls[i].ID < calls[j].ID
		}
		return calls[i].StartTime.Before(calls[j].StartTime)
	})

	cooldown := CooldownDefault
	if s.cfg.Flow == FlowAccepted {
		cooldown = CooldownWithRecordings
	}

	extensions := make(map[string]string, len(s.cfg.Extensions))
	for _, ext := range s.cfg.Extensions {
		extensions[ext.ID] = ext.Name
	}

	reconciler := NewReconciler(s.cfg.Flow, s.crm, s.source, s.rotator,
		NewSuppressor(cooldown), extensions, s.logger, stats)

	for _, call := range calls {
		if err := reconciler.Process(ctx, call); err != nil {
			s.logger.Error("sync run aborted", "error", err)
			return stats, err
		}
	}

	s.logSummary(stats)
	return stats, nil
}

// fetchAll retrieves the call logs of every configured extension. A failed
// extension contributes whatever pages it managed plus an api_errors bump
// and the run continues with the rest; auth exhaustion and cancellation
// abort immediately since every remaining extension would fail the same way.
func (s *SyncRun) fetchAll(ctx context.Context, stats *Statistics) ([]pbx.CallRecord, error) {
	var all []pbx.CallRecord
	for _, ext := range s.cfg.Extensions {
		s.logger.Info("fetching calls", "extension_id", ext.ID, "extension_name", ext.Name)
		calls, err := s.source.FetchCalls(ctx, ext.ID, s.cfg.From, s.cfg.To)
		all = append(all, calls...)
		if err != nil {
			if isFatal(err) {
				return all, err
			}
			s.logger.Error("call fetch incomplete",
				"extension_id", ext.ID, "fetched", len(calls), "error", err)
			stats.APIErrors++
		}
	}
	return all, nil
}

func (s *SyncRun) logSummary(stats *Statistics) {
	s.logger.Info("sync run completed",
		"total_calls", stats.TotalCalls,
		"qualified_calls", stats.QualifiedCalls,
		"processed_calls", stats.ProcessedCalls,
		"existing_leads_updated", stats.ExistingLeadsUpdated,
		"new_leads_created", stats.NewLeadsCreated,
		"skipped_calls", stats.SkippedCalls,
		"recordings_attached", stats.RecordingsAttached,
		"recording_failures", stats.RecordingFailures,
		"duplicates_prevented", stats.DuplicatesPrevented,
		"api_errors", stats.APIErrors,
		"failed_calls", stats.FailedCalls)
}
