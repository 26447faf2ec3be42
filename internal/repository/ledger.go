package repository

import (
	"context"
	"errors"
	"time"

	"availability-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// DayTx is the view of one locked day inside a ledger transaction
type DayTx interface {
	Day() *models.CalendarDay
	CountAvailable(ctx context.Context) (int, error)
	CountVotes(ctx context.Context) (int, error)
	UpsertVote(ctx context.Context, userID string, status models.Status, comment *string) (*models.Availability, error)
	UsersWithoutVote(ctx context.Context) ([]string, error)
	AlreadyReminded(ctx context.Context, userIDs []string) (map[string]struct{}, error)
	MarkReminded(ctx context.Context, userIDs []string) ([]string, error)
}

// Ledger runs the multi-statement units of work against the availability tables
type Ledger struct {
	db TxBeginner
}

// NewLedger creates a new ledger
func NewLedger(db TxBeginner) *Ledger {
	return &Ledger{db: db}
}

// GetUserByUsername retrieves a user by username
func (l *Ledger) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return NewUserRepository(l.db).GetByUsername(ctx, username)
}

// WithinDay resolves (or creates) the day for date, locks it and runs fn in
// one transaction. Concurrent callers for the same day run strictly one after
// another; callers for different days do not contend. fn's error rolls back.
func (l *Ledger) WithinDay(ctx context.Context, date time.Time, fn func(tx DayTx) error) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		days := NewDayRepository(tx)
		day, err := days.GetOrCreate(ctx, date)
		if err != nil {
			return err
		}
		if err := days.Lock(ctx, day.ID); err != nil {
			return err
		}
		return fn(&dayTx{
			day:          day,
			users:        NewUserRepository(tx),
			availability: NewAvailabilityRepository(tx),
			reminders:    NewReminderRepository(tx),
		})
	})
}

// BlockDays marks the user UNAVAILABLE on every date in one transaction,
// creating missing day records first and locking them like WithinDay does.
// It returns how many day records were targeted.
func (l *Ledger) BlockDays(ctx context.Context, userID string, dates []time.Time, note *string) (int, error) {
	var targeted int
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		days := NewDayRepository(tx)
		ids, err := days.EnsureMany(ctx, dates)
		if err != nil {
			return err
		}

		dayIDs := make([]string, 0, len(dates))
		for _, d := range dates {
			id, ok := ids[models.FormatDay(d)]
			if !ok {
				log.Warn().Str("day", models.FormatDay(d)).Msg("Day record missing after ensure")
				continue
			}
			dayIDs = append(dayIDs, id)
		}

		// same row locks as WithinDay: a vote never sees a block land between
		// its before and after counts
		if err := days.LockMany(ctx, dayIDs); err != nil {
			return err
		}
		if err := NewAvailabilityRepository(tx).MarkUnavailable(ctx, userID, dayIDs, note); err != nil {
			return err
		}
		targeted = len(dayIDs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return targeted, nil
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("failed to begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("failed to commit transaction", err)
	}
	return nil
}

type dayTx struct {
	day          *models.CalendarDay
	users        *UserRepository
	availability *AvailabilityRepository
	reminders    *ReminderRepository
}

func (t *dayTx) Day() *models.CalendarDay { return t.day }

func (t *dayTx) CountAvailable(ctx context.Context) (int, error) {
	return t.availability.CountByStatus(ctx, t.day.ID, models.StatusAvailable)
}

func (t *dayTx) CountVotes(ctx context.Context) (int, error) {
	return t.availability.CountAll(ctx, t.day.ID)
}

func (t *dayTx) UpsertVote(ctx context.Context, userID string, status models.Status, comment *string) (*models.Availability, error) {
	return t.availability.Upsert(ctx, userID, t.day.ID, status, comment)
}

func (t *dayTx) UsersWithoutVote(ctx context.Context) ([]string, error) {
	return t.users.ListIDsWithoutVote(ctx, t.day.ID)
}

func (t *dayTx) AlreadyReminded(ctx context.Context, userIDs []string) (map[string]struct{}, error) {
	return t.reminders.AlreadyReminded(ctx, userIDs, t.day.Day, ReminderThreshold)
}

func (t *dayTx) MarkReminded(ctx context.Context, userIDs []string) ([]string, error) {
	return t.reminders.MarkReminded(ctx, userIDs, t.day.Day, ReminderThreshold)
}
