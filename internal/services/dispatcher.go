package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"availability-backend/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrSubscriptionGone is returned by a PushSender when the push service
// reports the endpoint as permanently gone (404/410)
var ErrSubscriptionGone = errors.New("push subscription gone")

// ErrPushDisabled is returned by DisabledSender. Deliveries failing with it
// are counted as skipped.
var ErrPushDisabled = errors.New("push notifications disabled")

// PushSender delivers one payload to one endpoint
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte, urgency Urgency) error
}

// SubscriptionStore is the part of the subscription repository the dispatcher needs
type SubscriptionStore interface {
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
}

// DispatchReport summarizes one fan-out
type DispatchReport struct {
	Users     int
	Endpoints int
	Delivered int
	Pruned    int
	Failed    int
	Skipped   int
}

// Dispatcher fans a notification out to every endpoint of a set of users
type Dispatcher struct {
	subs        SubscriptionStore
	sender      PushSender
	concurrency int
}

// NewDispatcher creates a new dispatcher. concurrency bounds in-flight deliveries.
func NewDispatcher(subs SubscriptionStore, sender PushSender, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		subs:        subs,
		sender:      sender,
		concurrency: concurrency,
	}
}

// Dispatch delivers n to every endpoint registered for userIDs. Each delivery
// succeeds or fails on its own; gone endpoints are deleted, other failures are
// logged. The only returned error is a failed subscription lookup.
func (d *Dispatcher) Dispatch(ctx context.Context, userIDs []string, n Notification) (DispatchReport, error) {
	userIDs = uniqueIDs(userIDs)
	report := DispatchReport{Users: len(userIDs)}
	if len(userIDs) == 0 {
		return report, nil
	}

	subs, err := d.subs.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return report, fmt.Errorf("failed to resolve push subscriptions: %w", err)
	}
	report.Endpoints = len(subs)
	if len(subs) == 0 {
		return report, nil
	}

	n = n.Normalize()
	payload, err := n.Payload()
	if err != nil {
		return report, err
	}

	var delivered, pruned, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			err := d.sender.Send(ctx, sub, payload, n.Urgency)
			switch {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, ErrPushDisabled):
				skipped.Add(1)
			case errors.Is(err, ErrSubscriptionGone):
				if _, delErr := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
					log.Error().Err(delErr).Str("user_id", sub.UserID).Msg("Failed to prune push subscription")
					failed.Add(1)
					return nil
				}
				log.Info().Str("user_id", sub.UserID).Str("endpoint", shortEndpoint(sub.Endpoint)).Msg("Pruned gone push subscription")
				pruned.Add(1)
			default:
				log.Warn().Err(err).Str("user_id", sub.UserID).Str("tag", n.Tag).Msg("Push delivery failed")
				failed.Add(1)
			}
			// never short-circuit the group: other endpoints still get delivered
			return nil
		})
	}
	_ = g.Wait()

	report.Delivered = int(delivered.Load())
	report.Pruned = int(pruned.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())
	return report, nil
}

// DisabledSender stands in for a real sender when no VAPID keys are configured
type DisabledSender struct{}

// Send drops the payload
func (DisabledSender) Send(context.Context, *models.PushSubscription, []byte, Urgency) error {
	return ErrPushDisabled
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func shortEndpoint(endpoint string) string {
	if len(endpoint) <= 50 {
		return endpoint
	}
	return endpoint[:50] + "..."
}
