package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seorab/blogpace/app/database"
	"github.com/seorab/blogpace/app/feed"
)

const (
	// recentPostLimit caps the display posts kept per participant.
	recentPostLimit = 5
	// snippetLimit caps snippet length in runes.
	snippetLimit = 150
	// errorDetailLimit caps persisted fetch error detail.
	errorDetailLimit = 200
)

var ErrMissingFeedURL = errors.New("feed URL not configured")

// FeedFetcher retrieves a raw feed document.
type FeedFetcher interface {
	Run(ctx context.Context, url string) ([]byte, error)
}

// FeedParser normalizes a raw feed document into posts.
type FeedParser interface {
	Run(data []byte) (*feed.Metadata, []feed.Post, error)
}

// Snippeter derives a display snippet from post HTML.
type Snippeter interface {
	Run(html string, limit int) string
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Succeeded int
	Failed    int
}

// Processor sequences fetch, classify, accrue and persist across all
// participants, then ranks. Participants are processed independently on a
// bounded worker pool; one participant's failure never aborts the batch,
// and the ranking pass runs strictly after every per-participant update
// has been written.
type Processor struct {
	repo        database.ParticipantRepository
	fetcher     FeedFetcher
	parser      FeedParser
	snippets    Snippeter
	classifier  *Classifier
	accruer     *Accruer
	workerCount int

	now func() time.Time
}

func NewProcessor(repo database.ParticipantRepository, fetcher FeedFetcher, parser FeedParser,
	snippets Snippeter, classifier *Classifier, accruer *Accruer, workerCount int) *Processor {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Processor{
		repo:        repo,
		fetcher:     fetcher,
		parser:      parser,
		snippets:    snippets,
		classifier:  classifier,
		accruer:     accruer,
		workerCount: workerCount,
		now:         time.Now,
	}
}

// ProcessAll runs the full batch. Only a failure to enumerate participants
// aborts the run; per-participant errors are recorded and counted.
func (p *Processor) ProcessAll(ctx context.Context) (Summary, error) {
	participants, err := p.repo.GetAllParticipants()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to enumerate participants: %w", err)
	}

	now := p.now().UTC()

	var summary Summary
	var mu sync.Mutex
	var wg sync.WaitGroup

	jobs := make(chan database.Participant)
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for participant := range jobs {
				err := p.processOne(ctx, participant, now)

				mu.Lock()
				if err != nil {
					summary.Failed++
				} else {
					summary.Succeeded++
				}
				mu.Unlock()

				if err != nil {
					slog.Warn("Participant processing failed", "participant", participant.Name, "error", err)
				}
			}
		}()
	}

	for _, participant := range participants {
		select {
		case jobs <- participant:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// All per-participant writes are durable at this point; ranking uses
	// the persisted totals, so participants that failed this run keep
	// competing with their previous counts.
	if err := p.rankAll(); err != nil {
		slog.Error("Ranking pass failed", "error", err)
	}

	slog.Info("Batch run finished", "succeeded", summary.Succeeded, "failed", summary.Failed)

	return summary, nil
}

// Refresh fetches and classifies a single participant without running
// accrual or ranking.
func (p *Processor) Refresh(ctx context.Context, name string) error {
	participant, err := p.repo.GetParticipant(name)
	if err != nil {
		return fmt.Errorf("failed to get participant: %w", err)
	}
	if participant == nil {
		return fmt.Errorf("participant %q not found", name)
	}

	posts, err := p.fetchPosts(ctx, *participant)
	if err != nil {
		return err
	}
	if posts == nil {
		// Empty feed, already recorded.
		return nil
	}

	classification := p.classifier.Run(toChallengePosts(posts), participant.SkipCount)

	update := database.ClassificationUpdate{
		ChallengePosts:          len(classification.Counted),
		LastPostAt:              latestOrExisting(classification.Latest, participant.LastPostAt),
		SpecialMissionCompleted: participant.SpecialMissionCompleted || classification.SpecialMission,
	}
	if err := p.repo.UpdateClassification(participant.Name, update); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}

	p.storeRecentPosts(participant.Name, posts)

	slog.Info("Participant refreshed", "participant", participant.Name, "counted", len(classification.Counted))

	return nil
}

func (p *Processor) processOne(ctx context.Context, participant database.Participant, now time.Time) error {
	posts, err := p.fetchPosts(ctx, participant)
	if err != nil {
		return err
	}
	if posts == nil {
		return nil
	}

	classification := p.classifier.Run(toChallengePosts(posts), participant.SkipCount)

	prior := State{
		SuccessCount:           participant.SuccessCount,
		FailureCount:           participant.FailureCount,
		LastProcessedPeriodEnd: participant.LastProcessedPeriodEnd,
		IsActive:               participant.IsActive,
	}
	state := p.accruer.Run(classification.Counted, prior, now)

	update := database.AccrualUpdate{
		ChallengePosts:          len(classification.Counted),
		IsActive:                state.IsActive,
		SuccessCount:            state.SuccessCount,
		FailureCount:            state.FailureCount,
		LastProcessedPeriodEnd:  state.LastProcessedPeriodEnd,
		LastPostAt:              latestOrExisting(classification.Latest, participant.LastPostAt),
		SpecialMissionCompleted: participant.SpecialMissionCompleted || classification.SpecialMission,
	}
	if err := p.repo.UpdateAccrual(participant.Name, update); err != nil {
		// The fetch itself succeeded; a store failure must not take the
		// participant down with it, nor its siblings.
		slog.Error("Failed to persist accrual state", "participant", participant.Name, "error", err)
		return nil
	}

	p.storeRecentPosts(participant.Name, posts)

	slog.Info("Participant processed",
		"participant", participant.Name,
		"counted", len(classification.Counted),
		"active", state.IsActive,
		"success", state.SuccessCount,
		"failure", state.FailureCount)

	return nil
}

// fetchPosts retrieves and parses a participant's feed. A nil post slice
// with a nil error means the feed was empty and the condition has been
// recorded. Fetch errors are recorded with truncated detail before being
// returned; the caller only counts them.
func (p *Processor) fetchPosts(ctx context.Context, participant database.Participant) ([]feed.Post, error) {
	if participant.FeedURL == "" {
		p.recordFetchError(participant.Name, ErrMissingFeedURL.Error())
		return nil, ErrMissingFeedURL
	}

	data, err := p.fetcher.Run(ctx, participant.FeedURL)
	if err != nil {
		p.recordFetchError(participant.Name, err.Error())
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	_, posts, err := p.parser.Run(data)
	if err != nil {
		p.recordFetchError(participant.Name, err.Error())
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	if len(posts) == 0 {
		if err := p.repo.UpdateFeedEmpty(participant.Name, "feed has no items"); err != nil {
			slog.Error("Failed to record empty feed", "participant", participant.Name, "error", err)
		}
		return nil, nil
	}

	return posts, nil
}

func (p *Processor) recordFetchError(name, detail string) {
	if err := p.repo.UpdateFetchError(name, truncate(detail, errorDetailLimit)); err != nil {
		slog.Error("Failed to record fetch error", "participant", name, "error", err)
	}
}

func (p *Processor) storeRecentPosts(name string, posts []feed.Post) {
	limit := recentPostLimit
	if len(posts) < limit {
		limit = len(posts)
	}

	recent := make([]database.RecentPost, 0, limit)
	for _, post := range posts[:limit] {
		recent = append(recent, database.RecentPost{
			Title:     post.Title,
			Link:      post.Link,
			Published: post.Published,
			Snippet:   p.snippets.Run(coalesce(post.Description, post.Content), snippetLimit),
		})
	}

	if err := p.repo.ReplaceRecentPosts(name, recent); err != nil {
		slog.Error("Failed to store recent posts", "participant", name, "error", err)
	}
}

func (p *Processor) rankAll() error {
	participants, err := p.repo.GetAllParticipants()
	if err != nil {
		return fmt.Errorf("failed to load standings: %w", err)
	}

	standings := make([]Standing, 0, len(participants))
	for _, participant := range participants {
		standings = append(standings, Standing{
			Name:         participant.Name,
			CountedPosts: participant.ChallengePosts,
		})
	}

	for _, standing := range Rank(standings) {
		if err := p.repo.UpdateRank(standing.Name, standing.Rank); err != nil {
			slog.Error("Failed to update rank", "participant", standing.Name, "error", err)
		}
	}

	return nil
}

func toChallengePosts(posts []feed.Post) []Post {
	converted := make([]Post, 0, len(posts))
	for _, post := range posts {
		converted = append(converted, Post{
			Title:       post.Title,
			Link:        post.Link,
			PublishedAt: post.PublishedAt,
		})
	}
	return converted
}

func latestOrExisting(latest *time.Time, existing *time.Time) *time.Time {
	if latest != nil {
		return latest
	}
	return existing
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
