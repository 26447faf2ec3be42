package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"
)

type fakeDayReader struct {
	votes    []models.Vote
	askedFor time.Time
}

func (f *fakeDayReader) ListSummaries(context.Context) ([]*models.DaySummary, error) {
	return []*models.DaySummary{{Day: "2025-08-15"}}, nil
}

func (f *fakeDayReader) ListVotes(_ context.Context, day time.Time) ([]models.Vote, error) {
	f.askedFor = day
	return f.votes, nil
}

func TestGetDayCounts(t *testing.T) {
	reader := &fakeDayReader{votes: []models.Vote{
		{Username: "a", Status: models.StatusAvailable},
		{Username: "b", Status: models.StatusAvailable},
		{Username: "c", Status: models.StatusMaybe},
	}}
	s := NewDayService(reader)

	summary, err := s.GetDay(context.Background(), "2025-08-15")
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if summary.Counts[models.StatusAvailable] != 2 || summary.Counts[models.StatusMaybe] != 1 || summary.Counts[models.StatusUnavailable] != 0 {
		t.Fatalf("unexpected counts %v", summary.Counts)
	}
	if models.FormatDay(reader.askedFor) != "2025-08-15" {
		t.Fatalf("unexpected lookup day %v", reader.askedFor)
	}
}

func TestGetDayRejectsBadDay(t *testing.T) {
	s := NewDayService(&fakeDayReader{})
	if _, err := s.GetDay(context.Background(), "15.08.2025"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
