package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"
	"availability-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// VoteStore is the part of the ledger the vote service needs
type VoteStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	WithinDay(ctx context.Context, date time.Time, fn func(tx repository.DayTx) error) error
}

// Notifier delivers a notification to a set of users
type Notifier interface {
	Dispatch(ctx context.Context, userIDs []string, n Notification) (DispatchReport, error)
}

// EventPublisher receives live events after a ledger change
type EventPublisher interface {
	Publish(event LiveEvent)
}

// VoteRequest is one user's vote for one day
type VoteRequest struct {
	Username string
	Day      string
	Status   models.Status
	Comment  *string
}

// VoteResult is what a committed vote produced
type VoteResult struct {
	User            *models.User
	Day             string
	Vote            *models.Availability
	Crossed         bool
	AfterCount      int
	TotalVotes      int
	ReminderTargets []string
	ProgressTargets []string
}

// VoteService records votes and triggers the notifications they cause
type VoteService struct {
	store         VoteStore
	notifier      Notifier
	events        EventPublisher
	threshold     int
	icon          string
	notifyTimeout time.Duration

	pending sync.WaitGroup
}

// NewVoteService creates a new vote service. events may be nil.
func NewVoteService(store VoteStore, notifier Notifier, events EventPublisher, threshold int, icon string, notifyTimeout time.Duration) *VoteService {
	if notifyTimeout <= 0 {
		notifyTimeout = 30 * time.Second
	}
	return &VoteService{
		store:         store,
		notifier:      notifier,
		events:        events,
		threshold:     threshold,
		icon:          icon,
		notifyTimeout: notifyTimeout,
	}
}

// CastVote stores the vote and reports whether it pushed the day's AVAILABLE
// count across the threshold. The count-write-count sequence and the reminder
// bookkeeping run in one per-day transaction; notifications are sent after
// commit and never fail the vote.
func (s *VoteService) CastVote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperr.Validation("username required")
	}
	if !req.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", req.Status)
	}
	day, err := models.ParseDay(req.Day)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve voter: %w", err)
	}

	result := &VoteResult{User: user, Day: models.FormatDay(day)}
	err = s.store.WithinDay(ctx, day, func(tx repository.DayTx) error {
		before, err := tx.CountAvailable(ctx)
		if err != nil {
			return err
		}

		vote, err := tx.UpsertVote(ctx, user.ID, req.Status, req.Comment)
		if err != nil {
			return err
		}

		after, err := tx.CountAvailable(ctx)
		if err != nil {
			return err
		}
		total, err := tx.CountVotes(ctx)
		if err != nil {
			return err
		}

		result.Vote = vote
		result.AfterCount = after
		result.TotalVotes = total
		result.Crossed = before < s.threshold && after >= s.threshold
		result.ReminderTargets = nil
		result.ProgressTargets = nil

		if after < s.threshold {
			return nil
		}

		nonVoters, err := tx.UsersWithoutVote(ctx)
		if err != nil {
			return err
		}
		result.ProgressTargets = nonVoters

		if result.Crossed && len(nonVoters) > 0 {
			reminded, err := tx.AlreadyReminded(ctx, nonVoters)
			if err != nil {
				return err
			}
			remaining := make([]string, 0, len(nonVoters))
			for _, id := range nonVoters {
				if _, ok := reminded[id]; !ok {
					remaining = append(remaining, id)
				}
			}
			inserted, err := tx.MarkReminded(ctx, remaining)
			if err != nil {
				return err
			}
			result.ReminderTargets = inserted
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	log.Info().
		Str("username", user.Username).
		Str("day", result.Day).
		Str("status", string(req.Status)).
		Int("after_count", result.AfterCount).
		Int("total_votes", result.TotalVotes).
		Bool("crossed", result.Crossed).
		Msg("Vote cast")

	s.afterCommit(ctx, result)
	return result, nil
}

// Wait blocks until every detached notification run has finished
func (s *VoteService) Wait() {
	s.pending.Wait()
}

// afterCommit publishes the live event and sends notifications in a
// goroutine detached from the request, so neither slow dashboards nor slow push
// services delay the vote and a disconnecting client cannot cut the run short.
func (s *VoteService) afterCommit(ctx context.Context, result *VoteResult) {
	hasTargets := len(result.ReminderTargets) > 0 || len(result.ProgressTargets) > 0
	if s.events == nil && (s.notifier == nil || !hasTargets) {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		if s.events != nil {
			s.events.Publish(LiveEvent{
				Type:           EventVoteCast,
				Day:            result.Day,
				Username:       result.User.Username,
				Status:         string(result.Vote.Status),
				AvailableCount: result.AfterCount,
				TotalVotes:     result.TotalVotes,
				Crossed:        result.Crossed,
			})
		}
		if s.notifier != nil && hasTargets {
			s.notify(notifyCtx, result)
		}
	}()
}

func (s *VoteService) notify(ctx context.Context, result *VoteResult) {
	if result.Crossed && len(result.ReminderTargets) > 0 {
		n := thresholdReminder(result.Day, result.AfterCount, s.threshold, s.icon)
		report, err := s.notifier.Dispatch(ctx, result.ReminderTargets, n)
		logDispatch(err, report, result.Day, "reminder")
	}

	if len(result.ProgressTargets) > 0 {
		n := progressNotice(result.Day, result.TotalVotes, s.icon)
		report, err := s.notifier.Dispatch(ctx, result.ProgressTargets, n)
		logDispatch(err, report, result.Day, "progress")
	}
}

func logDispatch(err error, report DispatchReport, day, kind string) {
	if err != nil {
		log.Error().Err(err).Str("day", day).Str("kind", kind).Msg("Failed to dispatch notification")
		return
	}
	log.Info().
		Str("day", day).
		Str("kind", kind).
		Int("users", report.Users).
		Int("endpoints", report.Endpoints).
		Int("delivered", report.Delivered).
		Int("pruned", report.Pruned).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("Notification dispatched")
}
