package services

import (
	"context"
	"fmt"
	"time"

	"availability-backend/internal/models"
)

// DayReader reads aggregated votes
type DayReader interface {
	ListSummaries(ctx context.Context) ([]*models.DaySummary, error)
	ListVotes(ctx context.Context, day time.Time) ([]models.Vote, error)
}

// DayService serves the read side of the ledger
type DayService struct {
	reader DayReader
}

// NewDayService creates a new day service
func NewDayService(reader DayReader) *DayService {
	return &DayService{reader: reader}
}

// ListDays returns every day with at least one vote and its per-status counts
func (s *DayService) ListDays(ctx context.Context) ([]*models.DaySummary, error) {
	summaries, err := s.reader.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	return summaries, nil
}

// GetDay returns the votes of one day. An unknown day has no votes.
func (s *DayService) GetDay(ctx context.Context, day string) (*models.DaySummary, error) {
	date, err := models.ParseDay(day)
	if err != nil {
		return nil, err
	}
	votes, err := s.reader.ListVotes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get day: %w", err)
	}

	summary := &models.DaySummary{
		Day: models.FormatDay(date),
		Counts: map[models.Status]int{
			models.StatusAvailable:   0,
			models.StatusMaybe:       0,
			models.StatusUnavailable: 0,
		},
		Votes: votes,
	}
	for _, v := range votes {
		summary.Counts[v.Status]++
	}
	return summary, nil
}
