package repository

import (
	"context"
	"time"

	"availability-backend/internal/models"

	"github.com/google/uuid"
)

// DayRepository maps calendar dates to stable day records
type DayRepository struct {
	db DBTX
}

// NewDayRepository creates a new day repository
func NewDayRepository(db DBTX) *DayRepository {
	return &DayRepository{db: db}
}

// GetOrCreate returns the day record for date, creating it on first use.
// Insert-or-ignore then read: concurrent callers for the same date resolve
// to the same row instead of racing on the unique constraint.
func (r *DayRepository) GetOrCreate(ctx context.Context, date time.Time) (*models.CalendarDay, error) {
	date = models.TruncateDay(date)

	_, err := r.db.Exec(ctx, `
		INSERT INTO calendar_days (id, day, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO NOTHING
	`, uuid.New().String(), date, time.Now().UTC())
	if err != nil {
		return nil, classify("failed to create day", err)
	}

	var day models.CalendarDay
	err = r.db.QueryRow(ctx, `
		SELECT id, day, created_at
		FROM calendar_days
		WHERE day = $1
	`, date).Scan(&day.ID, &day.Day, &day.CreatedAt)
	if err != nil {
		return nil, classify("failed to read day", err)
	}
	return &day, nil
}

// Lock takes a row lock on the day for the rest of the surrounding
// transaction. Votes on the same day serialize here; other days are untouched.
func (r *DayRepository) Lock(ctx context.Context, dayID string) error {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM calendar_days WHERE id = $1 FOR UPDATE`, dayID).Scan(&id)
	if err != nil {
		return classify("failed to lock day", err)
	}
	return nil
}

// LockMany takes row locks on every day in dayIDs in id order, so two
// transactions locking overlapping sets cannot deadlock on each other.
func (r *DayRepository) LockMany(ctx context.Context, dayIDs []string) error {
	if len(dayIDs) == 0 {
		return nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM calendar_days
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`, dayIDs)
	if err != nil {
		return classify("failed to lock days", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return classify("failed to lock days", err)
	}
	return nil
}

// EnsureMany creates any missing day records for dates and returns their ids
// keyed by YYYY-MM-DD
func (r *DayRepository) EnsureMany(ctx context.Context, dates []time.Time) (map[string]string, error) {
	ids := make(map[string]string, len(dates))
	if len(dates) == 0 {
		return ids, nil
	}

	days := make([]time.Time, len(dates))
	newIDs := make([]string, len(dates))
	for i, d := range dates {
		days[i] = models.TruncateDay(d)
		newIDs[i] = uuid.New().String()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO calendar_days (id, day, created_at)
		SELECT unnest($1::uuid[]), unnest($2::date[]), now()
		ON CONFLICT (day) DO NOTHING
	`, newIDs, days)
	if err != nil {
		return nil, classify("failed to create days", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, day
		FROM calendar_days
		WHERE day = ANY($1::date[])
	`, days)
	if err != nil {
		return nil, classify("failed to read days", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var day time.Time
		if err := rows.Scan(&id, &day); err != nil {
			return nil, classify("failed to scan day", err)
		}
		ids[models.FormatDay(day)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating days", err)
	}
	return ids, nil
}
