package challenge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seorab/blogpace/app/database"
	"github.com/seorab/blogpace/app/feed"
)

type fakeRepo struct {
	mu           sync.Mutex
	order        []string
	participants map[string]*database.Participant
	recentPosts  map[string][]database.RecentPost
	listErr      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		participants: make(map[string]*database.Participant),
		recentPosts:  make(map[string][]database.RecentPost),
	}
}

func (r *fakeRepo) add(p database.Participant) {
	r.order = append(r.order, p.Name)
	copied := p
	r.participants[p.Name] = &copied
}

func (r *fakeRepo) GetParticipant(name string) (*database.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[name]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) GetAllParticipants() ([]database.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]database.Participant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.participants[name])
	}
	return out, nil
}

func (r *fakeRepo) GetParticipantCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants), nil
}

func (r *fakeRepo) UpsertParticipant(name, displayName, feedURL, websiteURL string, skipCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[name]; !ok {
		r.order = append(r.order, name)
		r.participants[name] = &database.Participant{Name: name}
	}
	p := r.participants[name]
	p.DisplayName = displayName
	p.FeedURL = feedURL
	p.WebsiteURL = websiteURL
	p.SkipCount = skipCount
	return nil
}

func (r *fakeRepo) UpdateAccrual(name string, update database.AccrualUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.participants[name]
	p.ChallengePosts = update.ChallengePosts
	p.IsActive = update.IsActive
	p.SuccessCount = update.SuccessCount
	p.FailureCount = update.FailureCount
	p.LastProcessedPeriodEnd = update.LastProcessedPeriodEnd
	p.LastPostAt = update.LastPostAt
	p.SpecialMissionCompleted = update.SpecialMissionCompleted
	p.FetchError = ""
	return nil
}

func (r *fakeRepo) UpdateClassification(name string, update database.ClassificationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.participants[name]
	p.ChallengePosts = update.ChallengePosts
	p.LastPostAt = update.LastPostAt
	p.SpecialMissionCompleted = update.SpecialMissionCompleted
	p.FetchError = ""
	return nil
}

func (r *fakeRepo) UpdateFetchError(name string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[name].FetchError = message
	return nil
}

func (r *fakeRepo) UpdateFeedEmpty(name string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.participants[name]
	p.FetchError = message
	p.IsActive = false
	return nil
}

func (r *fakeRepo) UpdateRank(name string, rank int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[name].Rank = rank
	return nil
}

func (r *fakeRepo) ReplaceRecentPosts(name string, posts []database.RecentPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recentPosts[name] = posts
	return nil
}

func (r *fakeRepo) GetRecentPosts(name string) ([]database.RecentPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentPosts[name], nil
}

type fakeFetcher struct {
	responses map[string][]byte
	errs      map[string]error
}

func (f *fakeFetcher) Run(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if data, ok := f.responses[url]; ok {
		return data, nil
	}
	return nil, errors.New("unexpected URL: " + url)
}

func rssWithPosts(instants ...time.Time) []byte {
	var items strings.Builder
	for i, instant := range instants {
		fmt.Fprintf(&items, `
    <item>
      <title>Post %d</title>
      <link>https://example.com/%d</link>
      <description>Body %d</description>
      <guid>post-%d</guid>
      <pubDate>%s</pubDate>
    </item>`, i, i, i, i, instant.UTC().Format(time.RFC1123Z))
	}

	return []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Blog</title>
    <link>https://example.com</link>
    <description>d</description>` + items.String() + `
  </channel>
</rss>`)
}

func emptyRSS() []byte {
	return []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Empty Blog</title>
    <link>https://example.com</link>
    <description>d</description>
  </channel>
</rss>`)
}

func testProcessor(t *testing.T, repo *fakeRepo, fetcher *fakeFetcher, now time.Time) *Processor {
	t.Helper()

	schedule := testSchedule(t)
	processor := NewProcessor(repo, fetcher, feed.NewParser(), feed.NewSnippetExtractor(),
		NewClassifier(schedule, nil), NewAccruer(schedule, false), 3)
	processor.now = func() time.Time { return now }
	return processor
}

func TestProcessAll_SuccessAndFailureIsolation(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "alice", FeedURL: "https://alice.dev/rss", SkipCount: 0})
	repo.add(database.Participant{Name: "bob", FeedURL: "https://bob.dev/rss", SkipCount: 0,
		ChallengePosts: 4, SuccessCount: 1, FailureCount: 1})

	fetcher := &fakeFetcher{
		responses: map[string][]byte{
			"https://alice.dev/rss": rssWithPosts(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)),
		},
		errs: map[string]error{
			"https://bob.dev/rss": errors.New("connection refused"),
		},
	}

	now := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	processor := testProcessor(t, repo, fetcher, now)

	summary, err := processor.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no batch error, got: %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("Expected summary {1, 1}, got {%d, %d}", summary.Succeeded, summary.Failed)
	}

	alice, _ := repo.GetParticipant("alice")
	if alice.SuccessCount != 1 || alice.FailureCount != 0 {
		t.Errorf("Expected alice success=1 failure=0, got success=%d failure=%d", alice.SuccessCount, alice.FailureCount)
	}
	if alice.ChallengePosts != 1 {
		t.Errorf("Expected alice challenge posts 1, got %d", alice.ChallengePosts)
	}
	if alice.FetchError != "" {
		t.Errorf("Expected alice fetch error cleared, got '%s'", alice.FetchError)
	}

	// Bob's fetch failed: error recorded, accrual untouched.
	bob, _ := repo.GetParticipant("bob")
	if !strings.Contains(bob.FetchError, "connection refused") {
		t.Errorf("Expected bob's fetch error to be recorded, got '%s'", bob.FetchError)
	}
	if bob.SuccessCount != 1 || bob.FailureCount != 1 || bob.ChallengePosts != 4 {
		t.Errorf("Expected bob accrual untouched, got success=%d failure=%d posts=%d",
			bob.SuccessCount, bob.FailureCount, bob.ChallengePosts)
	}

	// Ranking ran over persisted totals: bob keeps competing with his
	// previous count of 4 and beats alice's 1.
	if bob.Rank != 1 {
		t.Errorf("Expected bob rank 1, got %d", bob.Rank)
	}
	if alice.Rank != 2 {
		t.Errorf("Expected alice rank 2, got %d", alice.Rank)
	}
}

func TestProcessAll_MissingFeedURL(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "nourl", ChallengePosts: 2, SuccessCount: 1, FailureCount: 1, IsActive: true})

	fetcher := &fakeFetcher{}
	now := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	processor := testProcessor(t, repo, fetcher, now)

	summary, err := processor.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no batch error, got: %v", err)
	}

	if summary.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", summary.Failed)
	}

	participant, _ := repo.GetParticipant("nourl")
	if participant.FetchError != ErrMissingFeedURL.Error() {
		t.Errorf("Expected missing feed URL error, got '%s'", participant.FetchError)
	}
	// Accrual fields unchanged from prior persisted values.
	if participant.ChallengePosts != 2 || participant.SuccessCount != 1 || participant.FailureCount != 1 || !participant.IsActive {
		t.Errorf("Expected accrual state untouched, got %+v", participant)
	}
}

func TestProcessAll_EmptyFeed(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "quiet", FeedURL: "https://quiet.dev/rss", SuccessCount: 2, IsActive: true})

	fetcher := &fakeFetcher{responses: map[string][]byte{"https://quiet.dev/rss": emptyRSS()}}
	now := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	processor := testProcessor(t, repo, fetcher, now)

	summary, err := processor.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no batch error, got: %v", err)
	}

	// The fetch itself worked; an empty feed is not a run failure.
	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Errorf("Expected summary {1, 0}, got {%d, %d}", summary.Succeeded, summary.Failed)
	}

	participant, _ := repo.GetParticipant("quiet")
	if participant.FetchError != "feed has no items" {
		t.Errorf("Expected empty feed error, got '%s'", participant.FetchError)
	}
	if participant.IsActive {
		t.Error("Expected participant to be inactive with an empty feed")
	}
	if participant.SuccessCount != 2 {
		t.Errorf("Expected success count untouched, got %d", participant.SuccessCount)
	}
}

func TestProcessAll_EnumerationFailureAborts(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("store unavailable")

	processor := testProcessor(t, repo, &fakeFetcher{}, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC))

	if _, err := processor.ProcessAll(context.Background()); err == nil {
		t.Error("Expected batch-level error when participants cannot be enumerated")
	}
}

func TestProcessAll_FetchErrorTruncated(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "chatty", FeedURL: "https://chatty.dev/rss"})

	fetcher := &fakeFetcher{errs: map[string]error{
		"https://chatty.dev/rss": errors.New(strings.Repeat("x", 500)),
	}}
	processor := testProcessor(t, repo, fetcher, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC))

	if _, err := processor.ProcessAll(context.Background()); err != nil {
		t.Fatalf("Expected no batch error, got: %v", err)
	}

	participant, _ := repo.GetParticipant("chatty")
	if len([]rune(participant.FetchError)) > 200 {
		t.Errorf("Expected fetch error truncated to 200 runes, got %d", len([]rune(participant.FetchError)))
	}
}

func TestProcessAll_RecentPostsStored(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "prolific", FeedURL: "https://prolific.dev/rss", SkipCount: 0})

	// Seven posts; only the first five feed items are kept for display.
	instants := make([]time.Time, 7)
	for i := range instants {
		instants[i] = time.Date(2025, 5, 12+i, 9, 0, 0, 0, time.UTC)
	}
	fetcher := &fakeFetcher{responses: map[string][]byte{"https://prolific.dev/rss": rssWithPosts(instants...)}}

	processor := testProcessor(t, repo, fetcher, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC))
	if _, err := processor.ProcessAll(context.Background()); err != nil {
		t.Fatalf("Expected no batch error, got: %v", err)
	}

	posts, _ := repo.GetRecentPosts("prolific")
	if len(posts) != 5 {
		t.Fatalf("Expected 5 recent posts, got %d", len(posts))
	}
	if posts[0].Title != "Post 0" {
		t.Errorf("Expected feed order to be preserved, got first title '%s'", posts[0].Title)
	}
	if posts[0].Published == "" {
		t.Error("Expected verbatim published string to be stored")
	}
}

func TestRefresh_DoesNotTouchAccrual(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "solo", FeedURL: "https://solo.dev/rss", SkipCount: 1,
		SuccessCount: 3, FailureCount: 2, Rank: 7})

	fetcher := &fakeFetcher{responses: map[string][]byte{
		"https://solo.dev/rss": rssWithPosts(
			time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
		),
	}}

	processor := testProcessor(t, repo, fetcher, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC))
	if err := processor.Refresh(context.Background(), "solo"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	participant, _ := repo.GetParticipant("solo")
	if participant.ChallengePosts != 1 {
		t.Errorf("Expected counted total 1 after skip, got %d", participant.ChallengePosts)
	}
	if participant.SuccessCount != 3 || participant.FailureCount != 2 {
		t.Errorf("Expected counters untouched, got success=%d failure=%d", participant.SuccessCount, participant.FailureCount)
	}
	if participant.Rank != 7 {
		t.Errorf("Expected rank untouched, got %d", participant.Rank)
	}
	if participant.LastPostAt == nil || !participant.LastPostAt.Equal(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected last post date updated, got %v", participant.LastPostAt)
	}
}

func TestRefresh_UnknownParticipant(t *testing.T) {
	processor := testProcessor(t, newFakeRepo(), &fakeFetcher{}, time.Now().UTC())

	if err := processor.Refresh(context.Background(), "ghost"); err == nil {
		t.Error("Expected error for unknown participant")
	}
}

func TestProcessAll_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "steady", FeedURL: "https://steady.dev/rss", SkipCount: 0})

	fetcher := &fakeFetcher{responses: map[string][]byte{
		"https://steady.dev/rss": rssWithPosts(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)),
	}}

	now := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	processor := testProcessor(t, repo, fetcher, now)

	for i := 0; i < 3; i++ {
		if _, err := processor.ProcessAll(context.Background()); err != nil {
			t.Fatalf("Run %d: expected no error, got: %v", i, err)
		}
	}

	participant, _ := repo.GetParticipant("steady")
	// Two periods closed: one success (post in the first), one failure.
	if participant.SuccessCount != 1 || participant.FailureCount != 1 {
		t.Errorf("Expected success=1 failure=1 after repeated runs, got success=%d failure=%d",
			participant.SuccessCount, participant.FailureCount)
	}
}

func TestRankAll_StableOrderFromStore(t *testing.T) {
	repo := newFakeRepo()
	repo.add(database.Participant{Name: "a", ChallengePosts: 5})
	repo.add(database.Participant{Name: "b", ChallengePosts: 5})
	repo.add(database.Participant{Name: "c", ChallengePosts: 3})

	processor := testProcessor(t, repo, &fakeFetcher{}, time.Now().UTC())
	if err := processor.rankAll(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	wantRanks := map[string]int{"a": 1, "b": 2, "c": 3}
	names := make([]string, 0, len(wantRanks))
	for name := range wantRanks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		participant, _ := repo.GetParticipant(name)
		if participant.Rank != wantRanks[name] {
			t.Errorf("Expected %s rank %d, got %d", name, wantRanks[name], participant.Rank)
		}
	}
}
