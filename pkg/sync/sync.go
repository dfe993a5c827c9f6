// Package sync runs the reconciliation pipeline: load the watermark, fetch
// the source snapshot, read the target index, plan, apply, and persist the
// new watermark. The pipeline is sequential; per-record writes are
// independent rows, so they tolerate individual failures without aborting
// the batch.
package sync

import (
	"context"
	"time"

	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/logging"
	"github.com/agentstation/starsync/pkg/reconcile"
	"github.com/agentstation/starsync/pkg/stars"
)

// Source produces the starred-repository snapshot. A nil since requests the
// complete collection; a watermark bounds the fetch to newer items.
type Source interface {
	Stars(ctx context.Context, since *time.Time) ([]stars.Repo, error)
}

// Target reads and mutates the mirror database.
type Target interface {
	Records(ctx context.Context) (stars.Index, error)
	Create(ctx context.Context, repo stars.Repo) error
	Update(ctx context.Context, pageID string, repo stars.Repo) error
	Delete(ctx context.Context, pageID string) error
}

// StateStore persists the watermark between runs. Load's second return
// value is false when no prior successful sync exists.
type StateStore interface {
	Load() (time.Time, bool, error)
	Save(watermark time.Time) error
}

// Syncer wires a source, target, and state store into one runnable
// pipeline. Concurrent runs are not guarded against; the caller must not
// overlap invocations.
type Syncer struct {
	source Source
	target Target
	state  StateStore

	dryRun     bool
	allowEmpty bool
}

// New creates a Syncer with options.
func New(source Source, target Target, state StateStore, opts ...Option) *Syncer {
	s := &Syncer{
		source: source,
		target: target,
		state:  state,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sync. full forces full mode; otherwise the run is
// incremental when a watermark exists and full when it does not.
//
// Any error returned here means the run aborted before completing its
// batch (fetch, read, or integrity failure, or cancellation mid-apply) and
// the watermark was left untouched. Per-record write failures do not produce an error: they are
// logged, counted in the Result, and only block the watermark per the
// mode's advance rule.
func (s *Syncer) Run(ctx context.Context, full bool) (*Result, error) {
	// Step 1: Load the watermark. No watermark forces a full run.
	watermark, hasWatermark, err := s.state.Load()
	if err != nil {
		return nil, err
	}

	mode := reconcile.ModeIncremental
	var since *time.Time
	if full || !hasWatermark {
		mode = reconcile.ModeFull
	} else {
		since = &watermark
	}

	result := &Result{Mode: mode, DryRun: s.dryRun}

	logging.Info().
		Str("mode", mode.String()).
		Bool("dry_run", s.dryRun).
		Msg("Starting sync run")

	// Step 2: Fetch the source snapshot.
	repos, err := s.source.Stars(ctx, since)
	if err != nil {
		return nil, err
	}
	result.Fetched = len(repos)
	logging.Info().Int("count", len(repos)).Msg("Fetched starred repositories")

	// Step 3: Read the current target index.
	index, err := s.target.Records(ctx)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("count", len(index)).Msg("Read target records")

	// Step 4: Plan.
	plan := reconcile.Plan(repos, index, mode)
	summary := plan.Summary()
	logging.Info().
		Int("creates", summary.Creates).
		Int("updates", summary.Updates).
		Int("deletes", summary.Deletes).
		Msg("Computed sync plan")

	// Step 5: Refuse to wipe the mirror unless explicitly allowed. An empty
	// full snapshot against a populated target is more likely a source
	// outage than a user who unstarred everything.
	if plan.DeletesEverything(len(index)) && !s.allowEmpty {
		return nil, &errors.ValidationError{
			Field:   "snapshot",
			Message: "full sync fetched zero items but the target holds " +
				"records; rerun with allow-empty to delete them all",
		}
	}

	// Step 6: Apply, unless this is a dry run.
	if s.dryRun {
		result.Planned = summary
		logging.Info().Msg("Dry run completed, no changes applied")
		return result, nil
	}
	result.Planned = summary
	s.apply(ctx, plan, result)

	// A cancelled context aborts the batch: the remaining writes failed
	// because of the shutdown, not their records, and advancing the
	// watermark past items that were fetched but never written would skip
	// them on every future incremental run.
	if err := ctx.Err(); err != nil {
		logging.Warn().
			Int("failures", result.Failures()).
			Msg("Sync run cancelled before completing batch")
		return nil, err
	}

	// Step 7: Advance the watermark. The new value is the newest StarredAt
	// observed in the snapshot, not wall clock, so a fetch that stopped
	// early still lands exactly on the newest item processed. Full runs
	// only advance when the batch applied cleanly; rerunning after a
	// partial failure is always safe because the plan is idempotent.
	if next, ok := newestStar(repos); ok && s.shouldAdvance(mode, result) {
		if err := s.state.Save(next); err != nil {
			return nil, err
		}
		result.Watermark = next
		result.WatermarkAdvanced = true
		logging.Info().Time("watermark", next).Msg("Advanced sync watermark")
	} else if result.Failures() > 0 {
		logging.Warn().
			Int("failures", result.Failures()).
			Msg("Watermark not advanced due to write failures")
	}

	logging.Info().
		Int("created", result.Creates.Succeeded).
		Int("updated", result.Updates.Succeeded).
		Int("deleted", result.Deletes.Succeeded).
		Int("failed", result.Failures()).
		Msg("Sync run complete")

	return result, nil
}

// apply executes the plan's operations in order: creates, updates, deletes.
// Each operation is independent; a failure is logged against its identity
// key and counted, and the batch continues.
func (s *Syncer) apply(ctx context.Context, plan *reconcile.Changeset, result *Result) {
	for _, repo := range plan.Creates {
		result.Creates.Attempted++
		if err := s.target.Create(ctx, repo); err != nil {
			result.Creates.Failed++
			logging.Error().Err(&errors.SyncError{Operation: "create", Key: repo.ID, Err: err}).
				Str("full_name", repo.FullName).Msg("Create failed")
			continue
		}
		result.Creates.Succeeded++
	}

	for _, update := range plan.Updates {
		result.Updates.Attempted++
		if err := s.target.Update(ctx, update.PageID, update.Repo); err != nil {
			result.Updates.Failed++
			logging.Error().Err(&errors.SyncError{Operation: "update", Key: update.Repo.ID, Err: err}).
				Str("full_name", update.Repo.FullName).Msg("Update failed")
			continue
		}
		result.Updates.Succeeded++
	}

	for _, del := range plan.Deletes {
		result.Deletes.Attempted++
		if err := s.target.Delete(ctx, del.PageID); err != nil {
			result.Deletes.Failed++
			logging.Error().Err(&errors.SyncError{Operation: "delete", Key: del.Key, Err: err}).
				Msg("Delete failed")
			continue
		}
		result.Deletes.Succeeded++
	}
}

// shouldAdvance applies the mode's watermark rule. A full run must apply
// cleanly before the watermark may move: its plan covers the whole
// collection, so a failed write would otherwise never be retried. An
// incremental run advances on what it observed; failed records will be
// re-compared on the next full run, and holding the watermark back would
// refetch every item since the failure forever.
func (s *Syncer) shouldAdvance(mode reconcile.Mode, result *Result) bool {
	if mode == reconcile.ModeFull {
		return result.Failures() == 0
	}
	return true
}

// newestStar returns the most recent StarredAt in the snapshot.
func newestStar(repos []stars.Repo) (time.Time, bool) {
	var newest time.Time
	for _, repo := range repos {
		if repo.StarredAt.After(newest) {
			newest = repo.StarredAt
		}
	}
	return newest, !newest.IsZero()
}
