package sync

import (
	"fmt"
	"time"

	"github.com/agentstation/starsync/pkg/reconcile"
)

// Counts tallies one operation kind across a run.
type Counts struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Result reports what one sync run planned and did.
type Result struct {
	Mode    reconcile.Mode
	DryRun  bool
	Fetched int
	Planned reconcile.Summary

	Creates Counts
	Updates Counts
	Deletes Counts

	Watermark         time.Time
	WatermarkAdvanced bool
}

// Failures returns the total number of failed writes across all kinds.
func (r *Result) Failures() int {
	return r.Creates.Failed + r.Updates.Failed + r.Deletes.Failed
}

// String renders a one-line human summary.
func (r *Result) String() string {
	if r.DryRun {
		return fmt.Sprintf("%s sync (dry run): %s planned", r.Mode, r.Planned)
	}
	line := fmt.Sprintf("%s sync: %d created, %d updated, %d deleted",
		r.Mode, r.Creates.Succeeded, r.Updates.Succeeded, r.Deletes.Succeeded)
	if failed := r.Failures(); failed > 0 {
		line += fmt.Sprintf(", %d failed", failed)
	}
	return line
}
