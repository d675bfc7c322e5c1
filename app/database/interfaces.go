package database

import (
	"time"
)

// AccrualUpdate is the full per-participant state written after a
// successful fetch-classify-accrue pass.
type AccrualUpdate struct {
	ChallengePosts          int
	IsActive                bool
	SuccessCount            int
	FailureCount            int
	LastProcessedPeriodEnd  *time.Time
	LastPostAt              *time.Time
	SpecialMissionCompleted bool
}

// ClassificationUpdate is the display-side subset written by a
// single-participant refresh, which never touches accrual counters.
type ClassificationUpdate struct {
	ChallengePosts          int
	LastPostAt              *time.Time
	SpecialMissionCompleted bool
}

type ParticipantRepository interface {
	GetParticipant(name string) (*Participant, error)
	GetAllParticipants() ([]Participant, error)
	GetParticipantCount() (int, error)

	UpsertParticipant(name, displayName, feedURL, websiteURL string, skipCount int) error

	UpdateAccrual(name string, update AccrualUpdate) error
	UpdateClassification(name string, update ClassificationUpdate) error
	UpdateFetchError(name string, message string) error
	UpdateFeedEmpty(name string, message string) error
	UpdateRank(name string, rank int) error

	ReplaceRecentPosts(name string, posts []RecentPost) error
	GetRecentPosts(name string) ([]RecentPost, error)
}
