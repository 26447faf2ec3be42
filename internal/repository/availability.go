package repository

import (
	"context"
	"time"

	"availability-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AvailabilityRepository handles database operations for votes
type AvailabilityRepository struct {
	db DBTX
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert stores the vote of a user for a day. An existing vote is
// overwritten in place; the first id and created_at are kept.
func (r *AvailabilityRepository) Upsert(ctx context.Context, userID, dayID string, status models.Status, comment *string) (*models.Availability, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO availabilities (id, user_id, day_id, status, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, day_id)
		DO UPDATE SET status = EXCLUDED.status, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, day_id, status, comment, created_at, updated_at
	`
	var a models.Availability
	err := r.db.QueryRow(ctx, query, uuid.New().String(), userID, dayID, status, comment, now).Scan(
		&a.ID, &a.UserID, &a.DayID, &a.Status, &a.Comment, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, classify("failed to upsert availability", err)
	}
	return &a, nil
}

// CountByStatus counts the votes on a day with the given status
func (r *AvailabilityRepository) CountByStatus(ctx context.Context, dayID string, status models.Status) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM availabilities WHERE day_id = $1 AND status = $2`, dayID, status).Scan(&n)
	if err != nil {
		return 0, classify("failed to count availabilities", err)
	}
	return n, nil
}

// CountAll counts every vote on a day
func (r *AvailabilityRepository) CountAll(ctx context.Context, dayID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM availabilities WHERE day_id = $1`, dayID).Scan(&n)
	if err != nil {
		return 0, classify("failed to count votes", err)
	}
	return n, nil
}

// MarkUnavailable upserts an UNAVAILABLE vote for the user on every day in
// dayIDs. The comment is only written when note is non-nil.
func (r *AvailabilityRepository) MarkUnavailable(ctx context.Context, userID string, dayIDs []string, note *string) error {
	if len(dayIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO availabilities (id, user_id, day_id, status, comment, created_at, updated_at)
		VALUES ($1, $2, $3, 'UNAVAILABLE', $4, $5, $5)
		ON CONFLICT (user_id, day_id)
		DO UPDATE SET status = 'UNAVAILABLE',
			comment = COALESCE(EXCLUDED.comment, availabilities.comment),
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, dayID := range dayIDs {
		batch.Queue(query, uuid.New().String(), userID, dayID, note, now)
	}

	results := r.db.SendBatch(ctx, batch)
	for range dayIDs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return classify("failed to mark unavailable", err)
		}
	}
	if err := results.Close(); err != nil {
		return classify("failed to mark unavailable", err)
	}
	return nil
}

// ListVotes returns the votes cast on the day, oldest first
func (r *AvailabilityRepository) ListVotes(ctx context.Context, day time.Time) ([]models.Vote, error) {
	query := `
		SELECT u.id, u.username, a.status, a.comment
		FROM availabilities a
		JOIN calendar_days d ON d.id = a.day_id
		JOIN users u ON u.id = a.user_id
		WHERE d.day = $1
		ORDER BY a.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, models.TruncateDay(day))
	if err != nil {
		return nil, classify("failed to list votes", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.UserID, &v.Username, &v.Status, &v.Comment); err != nil {
			return nil, classify("failed to scan vote", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating votes", err)
	}
	return votes, nil
}

// ListSummaries returns every day with at least one vote, in ascending order,
// with per-status counts
func (r *AvailabilityRepository) ListSummaries(ctx context.Context) ([]*models.DaySummary, error) {
	query := `
		SELECT d.day, u.id, u.username, a.status, a.comment
		FROM availabilities a
		JOIN calendar_days d ON d.id = a.day_id
		JOIN users u ON u.id = a.user_id
		ORDER BY d.day ASC, a.created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classify("failed to list day summaries", err)
	}
	defer rows.Close()

	summaries := []*models.DaySummary{}
	var current *models.DaySummary
	for rows.Next() {
		var day time.Time
		var v models.Vote
		if err := rows.Scan(&day, &v.UserID, &v.Username, &v.Status, &v.Comment); err != nil {
			return nil, classify("failed to scan day summary", err)
		}
		key := models.FormatDay(day)
		if current == nil || current.Day != key {
			current = &models.DaySummary{
				Day: key,
				Counts: map[models.Status]int{
					models.StatusAvailable:   0,
					models.StatusMaybe:       0,
					models.StatusUnavailable: 0,
				},
				Votes: []models.Vote{},
			}
			summaries = append(summaries, current)
		}
		current.Counts[v.Status]++
		current.Votes = append(current.Votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating day summaries", err)
	}
	return summaries, nil
}
