// Package reconcile computes the set of target mutations that make the
// Notion mirror match a fetched GitHub stars snapshot. Plan is a pure
// decision function with no I/O, so the whole policy is testable without
// touching either API.
package reconcile

import (
	"sort"

	"github.com/agentstation/starsync/pkg/stars"
)

// Mode selects the deletion policy for a run.
type Mode string

const (
	// ModeFull trusts the snapshot as the complete source collection and
	// permits deletions of target records no longer present in it.
	ModeFull Mode = "full"

	// ModeIncremental treats the snapshot as a strict subset of the source
	// (items newer than the watermark), so absence carries no information
	// and deletes are never emitted.
	ModeIncremental Mode = "incremental"
)

// String returns the string representation of a mode.
func (m Mode) String() string {
	return string(m)
}

// Plan decides which target records to create, update, and delete so the
// target mirrors the snapshot under the given mode.
//
// Guarantees:
//   - no identity key appears in more than one operation per run
//   - an update is only emitted when at least one mirrored field differs
//   - operations come out in a stable order (creates, updates, deletes,
//     each sorted by identity key) so partial-failure reruns are reproducible
//   - a key present in the snapshot is never deleted in the same run, even
//     if the source reuses a key the target already holds (the create or
//     update wins)
//
// Duplicate keys in the snapshot resolve last-wins; the fetcher should not
// produce them, but a retried page must not corrupt the plan.
func Plan(repos []stars.Repo, index stars.Index, mode Mode) *Changeset {
	byKey := make(map[string]stars.Repo, len(repos))
	for _, repo := range repos {
		byKey[repo.ID] = repo
	}

	cs := &Changeset{Mode: mode}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		repo := byKey[key]
		record, exists := index[key]
		switch {
		case !exists:
			cs.Creates = append(cs.Creates, repo)
		case !repo.EqualFields(record.Repo):
			cs.Updates = append(cs.Updates, Update{PageID: record.PageID, Repo: repo})
		}
	}

	if mode == ModeFull {
		stale := make([]string, 0)
		for key := range index {
			if _, exists := byKey[key]; !exists {
				stale = append(stale, key)
			}
		}
		sort.Strings(stale)
		for _, key := range stale {
			cs.Deletes = append(cs.Deletes, Delete{PageID: index[key].PageID, Key: key})
		}
	}

	return cs
}
