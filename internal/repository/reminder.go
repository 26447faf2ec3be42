package repository

import (
	"context"
	"time"

	"availability-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// ReminderThreshold is the kind recorded for the "day reached the threshold" reminder
const ReminderThreshold = "threshold"

// ReminderRepository remembers which (user, day) pairs already received a reminder
type ReminderRepository struct {
	db DBTX
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// AlreadyReminded returns the subset of userIDs that already got a reminder of kind for the day
func (r *ReminderRepository) AlreadyReminded(ctx context.Context, userIDs []string, day time.Time, kind string) (map[string]struct{}, error) {
	reminded := make(map[string]struct{})
	if len(userIDs) == 0 {
		return reminded, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id
		FROM reminders_sent
		WHERE day = $1 AND kind = $2 AND user_id = ANY($3::uuid[])
	`, models.TruncateDay(day), kind, userIDs)
	if err != nil {
		return nil, classify("failed to read reminders", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("failed to scan reminders", err)
	}
	for _, id := range ids {
		reminded[id] = struct{}{}
	}
	return reminded, nil
}

// MarkReminded records a reminder of kind for every user in userIDs. Rows that
// already exist are skipped; the returned ids are the ones this call inserted,
// which makes the primary key the final arbiter of who gets notified.
func (r *ReminderRepository) MarkReminded(ctx context.Context, userIDs []string, day time.Time, kind string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		INSERT INTO reminders_sent (user_id, day, kind, created_at)
		SELECT unnest($1::uuid[]), $2::date, $3::text, now()
		ON CONFLICT (user_id, day, kind) DO NOTHING
		RETURNING user_id
	`, userIDs, models.TruncateDay(day), kind)
	if err != nil {
		return nil, classify("failed to mark reminded", err)
	}
	inserted, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("failed to mark reminded", err)
	}
	return inserted, nil
}
