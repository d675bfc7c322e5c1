package challenge

import (
	"sort"
	"time"
)

// Classifier partitions a participant's post history into counted and
// excluded posts. It is pure and stateless: re-running it over the same
// history always skips the same earliest posts, which is what makes the
// one-time onboarding grace idempotent across runs.
type Classifier struct {
	schedule Schedule
	special  *Window
}

// NewClassifier creates a classifier for the given schedule. special may
// be nil when no special mission window is configured.
func NewClassifier(schedule Schedule, special *Window) *Classifier {
	return &Classifier{
		schedule: schedule,
		special:  special,
	}
}

// Run classifies posts. skipCount earliest eligible posts are consumed by
// the onboarding grace and never counted. Posts inside the special mission
// window complete the mission instead of counting toward the challenge.
func (c *Classifier) Run(posts []Post, skipCount int) Classification {
	var result Classification

	eligible := make([]time.Time, 0, len(posts))
	for _, post := range posts {
		if post.PublishedAt == nil {
			continue
		}
		instant := post.PublishedAt.UTC()

		if result.Latest == nil || instant.After(*result.Latest) {
			latest := instant
			result.Latest = &latest
		}

		if c.special != nil && c.special.Contains(instant) {
			result.SpecialMission = true
			continue
		}

		if instant.Before(c.schedule.EpochStart) {
			continue
		}

		eligible = append(eligible, instant)
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Before(eligible[j])
	})

	if skipCount < 0 {
		skipCount = 0
	}
	if skipCount > len(eligible) {
		skipCount = len(eligible)
	}

	result.Counted = eligible[skipCount:]

	return result
}
