package api

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/seorab/blogpace/app/challenge"
	"github.com/seorab/blogpace/app/database"
	"github.com/seorab/blogpace/app/tasks"
)

func NewHandler(repo database.ParticipantRepository, processor *challenge.Processor,
	scheduler tasks.TaskSchedulerInterface, displayLanguage string) *Handler {
	tag, err := language.Parse(displayLanguage)
	if err != nil {
		tag = language.English
	}

	return &Handler{
		repo:      repo,
		processor: processor,
		scheduler: scheduler,
		collator:  collate.New(tag),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.repo.GetParticipantCount(); err == nil {
		health["participants"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	participants, err := h.repo.GetAllParticipants()
	if err != nil {
		slog.Error("Database error", "operation", "get_participants", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	active := 0
	totalPosts := 0
	totalSuccesses := 0
	totalFailures := 0
	fetchErrors := 0
	for _, participant := range participants {
		if participant.IsActive {
			active++
		}
		totalPosts += participant.ChallengePosts
		totalSuccesses += participant.SuccessCount
		totalFailures += participant.FailureCount
		if participant.FetchError != "" {
			fetchErrors++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"participants":    len(participants),
		"active":          active,
		"total_posts":     totalPosts,
		"total_successes": totalSuccesses,
		"total_failures":  totalFailures,
		"fetch_errors":    fetchErrors,
	})
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	participants, err := h.repo.GetAllParticipants()
	if err != nil {
		slog.Error("Database error", "operation", "get_participants", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].Rank < participants[j].Rank
	})

	views := make([]ParticipantView, 0, len(participants))
	for _, participant := range participants {
		views = append(views, toParticipantView(participant, nil))
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": views,
		"total":        len(views),
	})
}

func (h *Handler) GetParticipant(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing participant name parameter"})
		return
	}

	participant, err := h.repo.GetParticipant(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_participant", "participant", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	recent, err := h.repo.GetRecentPosts(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_posts", "participant", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toParticipantView(*participant, recent))
}

// APIListParticipants returns the full participant list sorted by display
// name with locale-aware collation.
func (h *Handler) APIListParticipants(c *gin.Context) {
	participants, err := h.repo.GetAllParticipants()
	if err != nil {
		slog.Error("Database error", "operation", "get_participants", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return h.collator.CompareString(participants[i].DisplayName, participants[j].DisplayName) < 0
	})

	views := make([]ParticipantView, 0, len(participants))
	for _, participant := range participants {
		views = append(views, toParticipantView(participant, nil))
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": views,
		"total":        len(views),
	})
}

func (h *Handler) APIRefreshAll(c *gin.Context) {
	task := tasks.NewRunBatchTask(h.processor)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing batch task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue batch task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIRefreshParticipant(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing participant name parameter"})
		return
	}

	participant, err := h.repo.GetParticipant(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_participant", "participant", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if participant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	task := tasks.NewRefreshParticipantTask(name, h.processor)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "participant", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"participant": gin.H{
			"name":        name,
			"displayName": participant.DisplayName,
		},
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func toParticipantView(participant database.Participant, recent []database.RecentPost) ParticipantView {
	view := ParticipantView{
		Name:                       participant.Name,
		DisplayName:                participant.DisplayName,
		WebsiteURL:                 participant.WebsiteURL,
		FeedURL:                    participant.FeedURL,
		ChallengePosts:             participant.ChallengePosts,
		IsActive:                   participant.IsActive,
		ChallengeSuccessCount:      participant.SuccessCount,
		ChallengeFailureCount:      participant.FailureCount,
		LastProcessedPeriodEndDate: formatInstant(participant.LastProcessedPeriodEnd),
		LastPostDate:               formatInstant(participant.LastPostAt),
		SpecialMissionCompleted:    participant.SpecialMissionCompleted,
		Rank:                       participant.Rank,
		FetchError:                 participant.FetchError,
	}

	for _, post := range recent {
		view.RecentPosts = append(view.RecentPosts, PostView{
			Title:     post.Title,
			Link:      post.Link,
			Published: post.Published,
			Snippet:   post.Snippet,
		})
	}

	return view
}

func formatInstant(instant *time.Time) *string {
	if instant == nil {
		return nil
	}
	formatted := instant.UTC().Format(time.RFC3339)
	return &formatted
}
