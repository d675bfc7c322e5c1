package api

import (
	"golang.org/x/text/collate"

	"github.com/seorab/blogpace/app/challenge"
	"github.com/seorab/blogpace/app/database"
	"github.com/seorab/blogpace/app/tasks"
)

type Handler struct {
	repo      database.ParticipantRepository
	processor *challenge.Processor
	scheduler tasks.TaskSchedulerInterface
	collator  *collate.Collator
}

// ParticipantView is the wire representation of one participant. The key
// names are fixed; downstream dashboards consume them as-is.
type ParticipantView struct {
	Name                       string     `json:"name"`
	DisplayName                string     `json:"displayName"`
	WebsiteURL                 string     `json:"websiteUrl,omitempty"`
	FeedURL                    string     `json:"feedUrl,omitempty"`
	ChallengePosts             int        `json:"challengePosts"`
	IsActive                   bool       `json:"isActive"`
	ChallengeSuccessCount      int        `json:"challengeSuccessCount"`
	ChallengeFailureCount      int        `json:"challengeFailureCount"`
	LastProcessedPeriodEndDate *string    `json:"lastProcessedPeriodEndDate"`
	LastPostDate               *string    `json:"lastPostDate"`
	SpecialMissionCompleted    bool       `json:"specialMissionCompleted"`
	Rank                       int        `json:"rank"`
	FetchError                 string     `json:"fetchError,omitempty"`
	RecentPosts                []PostView `json:"recentPosts,omitempty"`
}

// PostView is one entry of a participant's recent post list.
type PostView struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Snippet   string `json:"snippet"`
}
