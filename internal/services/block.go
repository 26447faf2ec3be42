package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// BlockStore is the part of the ledger the block service needs
type BlockStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	BlockDays(ctx context.Context, userID string, dates []time.Time, note *string) (int, error)
}

// DateRange is an inclusive range of YYYY-MM-DD days
type DateRange struct {
	Start string
	End   string
}

// BlockRequest marks a user unavailable on every matching weekday of a range
type BlockRequest struct {
	Username string
	// Weekdays are Monday-based: Monday=0 ... Sunday=6
	Weekdays    []int
	Range       *DateRange
	MonthsAhead *int
	Note        string
}

// BlockService blocks weekdays in bulk
type BlockService struct {
	store         BlockStore
	events        EventPublisher
	batchSize     int
	defaultMonths int
	maxMonths     int
	now           func() time.Time

	pending sync.WaitGroup
}

// NewBlockService creates a new block service. events may be nil.
func NewBlockService(store BlockStore, events EventPublisher, batchSize, defaultMonths, maxMonths int) *BlockService {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BlockService{
		store:         store,
		events:        events,
		batchSize:     batchSize,
		defaultMonths: defaultMonths,
		maxMonths:     maxMonths,
		now:           time.Now,
	}
}

// BlockWeekdays records the user as UNAVAILABLE on every day of the resolved
// range whose weekday is selected, and returns how many days were targeted.
// Re-running with overlapping input converges to the same state.
func (s *BlockService) BlockWeekdays(ctx context.Context, req BlockRequest) (int, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return 0, apperr.Validation("username required")
	}
	weekdays, err := weekdaySet(req.Weekdays)
	if err != nil {
		return 0, err
	}
	start, end, err := s.resolveRange(req)
	if err != nil {
		return 0, err
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}

	dates := matchingDays(start, end, weekdays)
	if len(dates) == 0 {
		return 0, nil
	}

	var note *string
	if trimmed := strings.TrimSpace(req.Note); trimmed != "" {
		note = &trimmed
	}

	affected := 0
	for i := 0; i < len(dates); i += s.batchSize {
		batch := dates[i:min(i+s.batchSize, len(dates))]
		n, err := s.store.BlockDays(ctx, user.ID, batch, note)
		if err != nil {
			return affected, fmt.Errorf("failed to block days: %w", err)
		}
		affected += n
	}

	log.Info().
		Str("username", user.Username).
		Str("start", models.FormatDay(start)).
		Str("end", models.FormatDay(end)).
		Ints("weekdays", sortedKeys(weekdays)).
		Int("affected_days", affected).
		Msg("Weekdays blocked")

	if s.events != nil {
		event := LiveEvent{
			Type:         EventDaysBlocked,
			Day:          models.FormatDay(start),
			Username:     user.Username,
			Status:       string(models.StatusUnavailable),
			AffectedDays: affected,
		}
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.events.Publish(event)
		}()
	}
	return affected, nil
}

// Wait blocks until every live event of finished blocks has been published
func (s *BlockService) Wait() {
	s.pending.Wait()
}

func (s *BlockService) resolveRange(req BlockRequest) (time.Time, time.Time, error) {
	// a range missing either bound falls back to monthsAhead
	if req.Range != nil && req.Range.Start != "" && req.Range.End != "" {
		start, err := models.ParseDay(req.Range.Start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := models.ParseDay(req.Range.End)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if start.After(end) {
			return time.Time{}, time.Time{}, apperr.Validation("invalid date range: %s is after %s", req.Range.Start, req.Range.End)
		}
		if end.After(start.AddDate(0, s.maxMonths, 0)) {
			return time.Time{}, time.Time{}, apperr.Validation("date range longer than %d months", s.maxMonths)
		}
		return start, end, nil
	}

	months := s.defaultMonths
	if req.MonthsAhead != nil {
		months = max(1, min(*req.MonthsAhead, s.maxMonths))
	}
	start := models.TruncateDay(s.now())
	return start, start.AddDate(0, months, 0), nil
}

func weekdaySet(weekdays []int) (map[int]struct{}, error) {
	if len(weekdays) == 0 {
		return nil, apperr.Validation("weekdays required")
	}
	set := make(map[int]struct{}, len(weekdays))
	for _, wd := range weekdays {
		if wd < 0 || wd > 6 {
			return nil, apperr.Validation("weekdays must be 0..6 (Monday..Sunday), got %d", wd)
		}
		set[wd] = struct{}{}
	}
	return set, nil
}

// matchingDays enumerates start..end inclusive and keeps the selected weekdays
func matchingDays(start, end time.Time, weekdays map[int]struct{}) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := weekdays[models.Weekday(d)]; ok {
			days = append(days, d)
		}
	}
	return days
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
