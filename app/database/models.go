package database

import (
	"time"
)

// Participant is one tracked blog with its persisted accrual state.
type Participant struct {
	Name        string // store key, slug derived from the definition file
	DisplayName string
	FeedURL     string
	WebsiteURL  string
	SkipCount   int

	ChallengePosts          int
	IsActive                bool
	SuccessCount            int
	FailureCount            int
	LastProcessedPeriodEnd  *time.Time
	LastPostAt              *time.Time
	SpecialMissionCompleted bool
	Rank                    int

	FetchError         string
	LastFetchAttemptAt *time.Time
	LastFetchSuccessAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecentPost is display data for one of a participant's latest posts,
// kept verbatim from the feed.
type RecentPost struct {
	Participant string
	Position    int
	Title       string
	Link        string
	Published   string
	Snippet     string
}
