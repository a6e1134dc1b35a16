package box

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the final state of one path in a sync run.
type Status int

const (
	// StatusApplied means the planned action completed.
	StatusApplied Status = iota

	// StatusSkipped means the plan decided up front to leave the path
	// alone. Reason carries why.
	StatusSkipped

	// StatusFailed means the action was attempted and failed. The rest
	// of the run continued; Err carries the cause.
	StatusFailed
)

var statusNames = map[Status]string{
	StatusApplied: "applied",
	StatusSkipped: "skipped",
	StatusFailed:  "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "unknown"
}

// Outcome is the result for a single path.
type Outcome struct {
	Path   string
	Action ActionKind
	Class  Classification
	Status Status

	// Reason explains a skip.
	Reason string

	// Err is the failure cause for failed outcomes.
	Err error
}

// SyncResult is the keyed outcome of one sync run. Every path the plan
// touched or deliberately skipped has exactly one entry, so two runs
// over the same trees produce the same set of keys regardless of
// execution order.
type SyncResult struct {
	RunID     string
	Direction Direction
	Started   time.Time
	Finished  time.Time

	// Outcomes is keyed by relative path.
	Outcomes map[string]Outcome
}

func newSyncResult(direction Direction) *SyncResult {
	return &SyncResult{
		RunID:     uuid.NewString(),
		Direction: direction,
		Started:   time.Now(),
		Outcomes:  make(map[string]Outcome),
	}
}

// Duration returns the wall time of the run.
func (r *SyncResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Applied returns the applied outcomes sorted by path.
func (r *SyncResult) Applied() []Outcome { return r.withStatus(StatusApplied) }

// Skipped returns the skipped outcomes sorted by path.
func (r *SyncResult) Skipped() []Outcome { return r.withStatus(StatusSkipped) }

// Failed returns the failed outcomes sorted by path.
func (r *SyncResult) Failed() []Outcome { return r.withStatus(StatusFailed) }

func (r *SyncResult) withStatus(s Status) []Outcome {
	var outcomes []Outcome

	for _, o := range r.Outcomes {
		if o.Status == s {
			outcomes = append(outcomes, o)
		}
	}

	slices.SortFunc(outcomes, func(a, b Outcome) int {
		return strings.Compare(a.Path, b.Path)
	})

	return outcomes
}

// Counts returns the number of applied, skipped, and failed outcomes.
func (r *SyncResult) Counts() (applied, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}

	return applied, skipped, failed
}

// Ok reports whether the run finished with no failures.
func (r *SyncResult) Ok() bool {
	_, _, failed := r.Counts()
	return failed == 0
}

// Conflicts returns the paths skipped because of a conflict, sorted.
func (r *SyncResult) Conflicts() []string {
	var paths []string

	for _, o := range r.Outcomes {
		if o.Status == StatusSkipped && o.Reason == ReasonConflict {
			paths = append(paths, o.Path)
		}
	}

	slices.Sort(paths)

	return paths
}

// Summary renders a one-line account of the run for logs and the CLI.
func (r *SyncResult) Summary() string {
	applied, skipped, failed := r.Counts()

	return fmt.Sprintf("%s complete: %d applied, %d skipped, %d failed in %s",
		r.Direction, applied, skipped, failed, r.Duration().Round(time.Millisecond))
}
