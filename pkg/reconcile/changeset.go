package reconcile

import (
	"fmt"

	"github.com/agentstation/starsync/pkg/stars"
)

// Update pairs a target page ID with the repo state to write to it.
type Update struct {
	PageID string
	Repo   stars.Repo
}

// Delete addresses a stale target record. Key is carried alongside the
// page ID so failures can be logged against the identity key.
type Delete struct {
	PageID string
	Key    string
}

// Changeset is the ordered output of a Plan call: creates, then updates,
// then deletes.
type Changeset struct {
	Mode    Mode
	Creates []stars.Repo
	Updates []Update
	Deletes []Delete
}

// HasChanges reports whether the changeset contains any operation.
func (c *Changeset) HasChanges() bool {
	return len(c.Creates) > 0 || len(c.Updates) > 0 || len(c.Deletes) > 0
}

// DeletesEverything reports whether applying the changeset would remove
// every record the target currently holds while creating none. This is the
// destructive empty-source full-sync shape that callers must surface before
// applying.
func (c *Changeset) DeletesEverything(targetSize int) bool {
	return targetSize > 0 && len(c.Deletes) == targetSize && len(c.Creates) == 0 && len(c.Updates) == 0
}

// Summary describes a changeset in counts.
type Summary struct {
	Creates int
	Updates int
	Deletes int
}

// Summary returns operation counts for logging and reporting.
func (c *Changeset) Summary() Summary {
	return Summary{
		Creates: len(c.Creates),
		Updates: len(c.Updates),
		Deletes: len(c.Deletes),
	}
}

// String renders the summary as a human-readable plan line.
func (s Summary) String() string {
	return fmt.Sprintf("%d creates, %d updates, %d deletes", s.Creates, s.Updates, s.Deletes)
}
