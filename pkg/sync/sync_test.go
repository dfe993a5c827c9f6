package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/stars"
)

type fakeSource struct {
	repos []stars.Repo
	err   error

	calls int
	since *time.Time
}

func (f *fakeSource) Stars(_ context.Context, since *time.Time) ([]stars.Repo, error) {
	f.calls++
	f.since = since
	return f.repos, f.err
}

type fakeTarget struct {
	index stars.Index

	created []string
	updated []string
	deleted []string

	failCreate map[string]error
	failUpdate map[string]error
	failDelete map[string]error
}

func (f *fakeTarget) Records(context.Context) (stars.Index, error) {
	return f.index, nil
}

func (f *fakeTarget) Create(_ context.Context, repo stars.Repo) error {
	if err := f.failCreate[repo.ID]; err != nil {
		return err
	}
	f.created = append(f.created, repo.ID)
	return nil
}

func (f *fakeTarget) Update(_ context.Context, pageID string, repo stars.Repo) error {
	if err := f.failUpdate[repo.ID]; err != nil {
		return err
	}
	f.updated = append(f.updated, repo.ID)
	return nil
}

func (f *fakeTarget) Delete(_ context.Context, pageID string) error {
	if err := f.failDelete[pageID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, pageID)
	return nil
}

type fakeState struct {
	watermark time.Time
	exists    bool
	loadErr   error
	saveErr   error

	saved      []time.Time
	saveCalled bool
}

func (f *fakeState) Load() (time.Time, bool, error) {
	return f.watermark, f.exists, f.loadErr
}

func (f *fakeState) Save(watermark time.Time) error {
	f.saveCalled = true
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, watermark)
	return nil
}

func repoAt(id, name string, starredAt time.Time) stars.Repo {
	return stars.Repo{
		ID:        id,
		Name:      name,
		FullName:  "owner/" + name,
		URL:       "https://github.com/owner/" + name,
		StarredAt: starredAt,
	}
}

func TestRunFullCreatesUpdatesDeletes(t *testing.T) {
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{repos: []stars.Repo{
		repoAt("1", "alpha", now),
		repoAt("2", "beta", now.Add(-time.Hour)),
	}}
	target := &fakeTarget{index: stars.Index{
		"2": {PageID: "page-2", Repo: stars.Repo{ID: "2", Name: "beta-stale"}},
		"3": {PageID: "page-3", Repo: stars.Repo{ID: "3", Name: "gone"}},
	}}
	state := &fakeState{}

	result, err := New(source, target, state).Run(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, target.created)
	assert.Equal(t, []string{"2"}, target.updated)
	assert.Equal(t, []string{"page-3"}, target.deleted)
	assert.Nil(t, source.since, "full mode fetches the whole collection")
	assert.True(t, result.WatermarkAdvanced)
	require.Len(t, state.saved, 1)
	assert.Equal(t, now, state.saved[0], "watermark is the newest observed star time")
}

func TestRunWithoutWatermarkForcesFullMode(t *testing.T) {
	source := &fakeSource{}
	state := &fakeState{exists: false}

	result, err := New(source, &fakeTarget{}, state).Run(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "full", result.Mode.String())
	assert.Nil(t, source.since)
}

func TestRunIncrementalPassesWatermarkAndNeverDeletes(t *testing.T) {
	watermark := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{repos: []stars.Repo{
		repoAt("9", "new", watermark.Add(time.Hour)),
	}}
	target := &fakeTarget{index: stars.Index{
		"5": {PageID: "page-5", Repo: stars.Repo{ID: "5", Name: "old"}},
	}}
	state := &fakeState{watermark: watermark, exists: true}

	result, err := New(source, target, state).Run(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "incremental", result.Mode.String())
	require.NotNil(t, source.since)
	assert.Equal(t, watermark, *source.since)
	assert.Equal(t, []string{"9"}, target.created)
	assert.Empty(t, target.deleted, "incremental runs never delete")
	require.Len(t, state.saved, 1)
	assert.Equal(t, watermark.Add(time.Hour), state.saved[0])
}

func TestRunFullPartialFailureHoldsWatermark(t *testing.T) {
	// Three planned updates; the second write fails. The other two apply,
	// and the watermark stays put so a rerun re-covers the failed record.
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{repos: []stars.Repo{
		repoAt("1", "alpha", now),
		repoAt("2", "beta", now.Add(-time.Hour)),
		repoAt("3", "gamma", now.Add(-2*time.Hour)),
	}}
	target := &fakeTarget{
		index: stars.Index{
			"1": {PageID: "page-1", Repo: stars.Repo{ID: "1", Name: "stale"}},
			"2": {PageID: "page-2", Repo: stars.Repo{ID: "2", Name: "stale"}},
			"3": {PageID: "page-3", Repo: stars.Repo{ID: "3", Name: "stale"}},
		},
		failUpdate: map[string]error{"2": errors.ErrUnavailable},
	}
	state := &fakeState{watermark: now.Add(-48 * time.Hour), exists: true}

	result, err := New(source, target, state).Run(context.Background(), true)

	require.NoError(t, err, "per-record failures do not abort the run")
	assert.Equal(t, []string{"1", "3"}, target.updated)
	assert.Equal(t, 3, result.Updates.Attempted)
	assert.Equal(t, 2, result.Updates.Succeeded)
	assert.Equal(t, 1, result.Updates.Failed)
	assert.Equal(t, 1, result.Failures())
	assert.False(t, result.WatermarkAdvanced)
	assert.False(t, state.saveCalled, "full mode holds the watermark on any failure")
}

func TestRunIncrementalAdvancesDespiteFailure(t *testing.T) {
	watermark := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	newest := watermark.Add(2 * time.Hour)
	source := &fakeSource{repos: []stars.Repo{
		repoAt("1", "alpha", newest),
		repoAt("2", "beta", watermark.Add(time.Hour)),
	}}
	target := &fakeTarget{failCreate: map[string]error{"2": errors.ErrUnavailable}}
	state := &fakeState{watermark: watermark, exists: true}

	result, err := New(source, target, state).Run(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failures())
	assert.True(t, result.WatermarkAdvanced)
	require.Len(t, state.saved, 1)
	assert.Equal(t, newest, state.saved[0])
}

func TestRunDryRunAppliesNothing(t *testing.T) {
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{repos: []stars.Repo{repoAt("1", "alpha", now)}}
	target := &fakeTarget{index: stars.Index{
		"2": {PageID: "page-2", Repo: stars.Repo{ID: "2"}},
	}}
	state := &fakeState{}

	result, err := New(source, target, state, WithDryRun(true)).Run(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Planned.Creates)
	assert.Equal(t, 1, result.Planned.Deletes)
	assert.Empty(t, target.created)
	assert.Empty(t, target.deleted)
	assert.False(t, state.saveCalled, "dry runs never move the watermark")
}

func TestRunEmptyFullSnapshotAborts(t *testing.T) {
	source := &fakeSource{}
	target := &fakeTarget{index: stars.Index{
		"1": {PageID: "page-1", Repo: stars.Repo{ID: "1"}},
		"2": {PageID: "page-2", Repo: stars.Repo{ID: "2"}},
	}}
	state := &fakeState{}

	_, err := New(source, target, state).Run(context.Background(), true)

	require.Error(t, err)
	var validationErr *errors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, target.deleted)
	assert.False(t, state.saveCalled)
}

func TestRunEmptyFullSnapshotAllowed(t *testing.T) {
	source := &fakeSource{}
	target := &fakeTarget{index: stars.Index{
		"1": {PageID: "page-1", Repo: stars.Repo{ID: "1"}},
	}}
	state := &fakeState{}

	result, err := New(source, target, state, WithAllowEmpty(true)).Run(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"page-1"}, target.deleted)
	assert.False(t, result.WatermarkAdvanced, "an empty snapshot carries no star times")
}

func TestRunNoChangesIsNoOp(t *testing.T) {
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	repo := repoAt("1", "alpha", now)
	source := &fakeSource{repos: []stars.Repo{repo}}
	target := &fakeTarget{index: stars.Index{
		"1": {PageID: "page-1", Repo: repo},
	}}
	state := &fakeState{}

	result, err := New(source, target, state).Run(context.Background(), true)

	require.NoError(t, err)
	assert.Empty(t, target.created)
	assert.Empty(t, target.updated)
	assert.Empty(t, target.deleted)
	assert.True(t, result.WatermarkAdvanced, "a clean no-op run still records where it looked")
}

// cancellingTarget cancels the run's context after its first successful
// create, the shape of an interrupt arriving mid-batch.
type cancellingTarget struct {
	fakeTarget
	cancel context.CancelFunc
}

func (c *cancellingTarget) Create(ctx context.Context, repo stars.Repo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.fakeTarget.Create(ctx, repo)
	c.cancel()
	return err
}

func TestRunCancellationMidApplyHoldsWatermark(t *testing.T) {
	watermark := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{repos: []stars.Repo{
		repoAt("1", "alpha", watermark.Add(time.Hour)),
		repoAt("2", "beta", watermark.Add(2*time.Hour)),
		repoAt("3", "gamma", watermark.Add(3*time.Hour)),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	target := &cancellingTarget{cancel: cancel}
	state := &fakeState{watermark: watermark, exists: true}

	_, err := New(source, target, state).Run(ctx, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, target.created, "writes stop once the context is cancelled")
	assert.False(t, state.saveCalled, "items fetched but never written must stay ahead of the watermark")
}

func TestRunSourceErrorLeavesStateUntouched(t *testing.T) {
	source := &fakeSource{err: errors.ErrUnavailable}
	state := &fakeState{}

	_, err := New(source, &fakeTarget{}, state).Run(context.Background(), true)

	require.Error(t, err)
	assert.False(t, state.saveCalled)
}

func TestResultString(t *testing.T) {
	result := &Result{
		Mode:    "full",
		Creates: Counts{Succeeded: 2},
		Updates: Counts{Succeeded: 1, Failed: 1},
	}
	assert.Equal(t, "full sync: 2 created, 1 updated, 0 deleted, 1 failed", result.String())
}
