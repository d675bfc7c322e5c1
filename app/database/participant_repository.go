package database

import (
	"database/sql"
	"fmt"
	"time"
)

// serverNow is the store-assigned write timestamp used for audit fields.
const serverNow = "strftime('%Y-%m-%dT%H:%M:%SZ', 'now')"

const participantColumns = `name, display_name, feed_url, website_url, skip_count,
	       challenge_posts, is_active, success_count, failure_count,
	       last_processed_period_end, last_post_at, special_mission_completed, rank,
	       fetch_error, last_fetch_attempt_at, last_fetch_success_at,
	       created_at, updated_at`

// SQLParticipantRepository handles database operations for participants.
type SQLParticipantRepository struct {
	db *DB
}

var _ ParticipantRepository = (*SQLParticipantRepository)(nil)

func NewParticipantRepository(db *DB) *SQLParticipantRepository {
	return &SQLParticipantRepository{db: db}
}

func (r *SQLParticipantRepository) GetParticipant(name string) (*Participant, error) {
	row := r.db.QueryRow(`
		SELECT `+participantColumns+`
		FROM participants
		WHERE name = ?
	`, name)

	participant, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return participant, nil
}

func (r *SQLParticipantRepository) GetAllParticipants() ([]Participant, error) {
	rows, err := r.db.Query(`
		SELECT ` + participantColumns + `
		FROM participants
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, *participant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	return participants, nil
}

func (r *SQLParticipantRepository) GetParticipantCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM participants`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// UpsertParticipant registers a participant definition. Accrual state is
// owned by the accrual engine and survives re-registration untouched.
func (r *SQLParticipantRepository) UpsertParticipant(name, displayName, feedURL, websiteURL string, skipCount int) error {
	_, err := r.db.Exec(`
		INSERT INTO participants (name, display_name, feed_url, website_url, skip_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			display_name = excluded.display_name,
			feed_url = excluded.feed_url,
			website_url = excluded.website_url,
			skip_count = excluded.skip_count,
			updated_at = `+serverNow+`
	`, name, displayName, feedURL, websiteURL, skipCount)

	if err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) UpdateAccrual(name string, update AccrualUpdate) error {
	_, err := r.db.Exec(`
		UPDATE participants
		SET challenge_posts = ?,
		    is_active = ?,
		    success_count = ?,
		    failure_count = ?,
		    last_processed_period_end = ?,
		    last_post_at = ?,
		    special_mission_completed = ?,
		    fetch_error = '',
		    last_fetch_attempt_at = `+serverNow+`,
		    last_fetch_success_at = `+serverNow+`,
		    updated_at = `+serverNow+`
		WHERE name = ?
	`, update.ChallengePosts, update.IsActive, update.SuccessCount, update.FailureCount,
		nullInstant(update.LastProcessedPeriodEnd), nullInstant(update.LastPostAt),
		update.SpecialMissionCompleted, name)

	if err != nil {
		return fmt.Errorf("failed to update accrual state: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) UpdateClassification(name string, update ClassificationUpdate) error {
	_, err := r.db.Exec(`
		UPDATE participants
		SET challenge_posts = ?,
		    last_post_at = ?,
		    special_mission_completed = ?,
		    fetch_error = '',
		    last_fetch_attempt_at = `+serverNow+`,
		    last_fetch_success_at = `+serverNow+`,
		    updated_at = `+serverNow+`
		WHERE name = ?
	`, update.ChallengePosts, nullInstant(update.LastPostAt), update.SpecialMissionCompleted, name)

	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) UpdateFetchError(name string, message string) error {
	_, err := r.db.Exec(`
		UPDATE participants
		SET fetch_error = ?,
		    last_fetch_attempt_at = `+serverNow+`,
		    updated_at = `+serverNow+`
		WHERE name = ?
	`, message, name)

	if err != nil {
		return fmt.Errorf("failed to record fetch error: %w", err)
	}

	return nil
}

// UpdateFeedEmpty records a feed that fetched fine but carried no items.
// The participant cannot be active without posts; accrual counters stay
// untouched.
func (r *SQLParticipantRepository) UpdateFeedEmpty(name string, message string) error {
	_, err := r.db.Exec(`
		UPDATE participants
		SET fetch_error = ?,
		    is_active = 0,
		    last_fetch_attempt_at = `+serverNow+`,
		    updated_at = `+serverNow+`
		WHERE name = ?
	`, message, name)

	if err != nil {
		return fmt.Errorf("failed to record empty feed: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) UpdateRank(name string, rank int) error {
	_, err := r.db.Exec(`
		UPDATE participants
		SET rank = ?,
		    updated_at = `+serverNow+`
		WHERE name = ?
	`, rank, name)

	if err != nil {
		return fmt.Errorf("failed to update rank: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) ReplaceRecentPosts(name string, posts []RecentPost) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recent_posts WHERE participant = ?`, name); err != nil {
		return fmt.Errorf("failed to clear recent posts: %w", err)
	}

	for i, post := range posts {
		_, err := tx.Exec(`
			INSERT INTO recent_posts (participant, position, title, link, published, snippet)
			VALUES (?, ?, ?, ?, ?, ?)
		`, name, i, post.Title, post.Link, post.Published, post.Snippet)
		if err != nil {
			return fmt.Errorf("failed to insert recent post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recent posts: %w", err)
	}

	return nil
}

func (r *SQLParticipantRepository) GetRecentPosts(name string) ([]RecentPost, error) {
	rows, err := r.db.Query(`
		SELECT participant, position, title, link, published, snippet
		FROM recent_posts
		WHERE participant = ?
		ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	defer rows.Close()

	var posts []RecentPost
	for rows.Next() {
		var post RecentPost
		err := rows.Scan(&post.Participant, &post.Position, &post.Title, &post.Link, &post.Published, &post.Snippet)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent post rows: %w", err)
	}

	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*Participant, error) {
	var p Participant
	var lastProcessed, lastPost, lastAttempt, lastSuccess sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&p.Name, &p.DisplayName, &p.FeedURL, &p.WebsiteURL, &p.SkipCount,
		&p.ChallengePosts, &p.IsActive, &p.SuccessCount, &p.FailureCount,
		&lastProcessed, &lastPost, &p.SpecialMissionCompleted, &p.Rank,
		&p.FetchError, &lastAttempt, &lastSuccess,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.LastProcessedPeriodEnd, err = parseNullInstant(lastProcessed); err != nil {
		return nil, fmt.Errorf("invalid last_processed_period_end: %w", err)
	}
	if p.LastPostAt, err = parseNullInstant(lastPost); err != nil {
		return nil, fmt.Errorf("invalid last_post_at: %w", err)
	}
	if p.LastFetchAttemptAt, err = parseNullInstant(lastAttempt); err != nil {
		return nil, fmt.Errorf("invalid last_fetch_attempt_at: %w", err)
	}
	if p.LastFetchSuccessAt, err = parseNullInstant(lastSuccess); err != nil {
		return nil, fmt.Errorf("invalid last_fetch_success_at: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &p, nil
}

// Timestamps are stored as RFC3339 UTC strings; SQLite has no native
// timestamp type and string storage keeps the values driver-agnostic.
func nullInstant(instant *time.Time) any {
	if instant == nil {
		return nil
	}
	return instant.UTC().Format(time.RFC3339)
}

func parseNullInstant(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}

	instant, err := time.Parse(time.RFC3339, value.String)
	if err != nil {
		return nil, err
	}

	instant = instant.UTC()
	return &instant, nil
}
