package challenge

import (
	"time"
)

// Tick is the time granularity of all period arithmetic. Feed timestamps
// carry second precision, so adjacent periods are separated by one second:
// a period ends at ...T23:59:59Z and the next one starts at ...T00:00:00Z.
const Tick = time.Second

// Period is a contiguous challenge window with inclusive Start and End.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether instant falls within the period (inclusive).
func (p Period) Contains(instant time.Time) bool {
	return !instant.Before(p.Start) && !instant.After(p.End)
}

// FinalizedAt reports whether the period is closed relative to now.
// The currently open period is never finalized.
func (p Period) FinalizedAt(now time.Time) bool {
	return p.End.Before(now)
}

// Window is a bounded instant range with inclusive ends, used for the
// special mission.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(instant time.Time) bool {
	return !instant.Before(w.Start) && !instant.After(w.End)
}

// Post is a single blog post as seen by the challenge engine. PublishedAt
// is nil when the feed date failed to parse; such posts are discarded from
// classification but may still appear in display data.
type Post struct {
	Title       string
	Link        string
	PublishedAt *time.Time
}

// State is the per-participant accrual state owned by the accrual engine.
type State struct {
	SuccessCount           int
	FailureCount           int
	LastProcessedPeriodEnd *time.Time
	IsActive               bool
}

// Classification is the result of running the classifier over a
// participant's full post history.
type Classification struct {
	// Counted holds the instants of challenge-eligible posts, ascending.
	Counted []time.Time
	// Latest is the maximum instant across all parseable posts, for display.
	Latest *time.Time
	// SpecialMission is true when at least one post falls inside the
	// special mission window.
	SpecialMission bool
}

// Standing is one participant's entry in the ranking pass.
type Standing struct {
	Name         string
	CountedPosts int
	Rank         int
}
