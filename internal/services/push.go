package services

import (
	"context"
	"fmt"
	"strings"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// PushUserStore resolves push recipients
type PushUserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListIDsWithSubscriptions(ctx context.Context) ([]string, error)
}

// SubscriptionWriter registers and removes push endpoints
type SubscriptionWriter interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
}

// BroadcastRequest is a free-form message to everybody with a subscription.
// Empty fields fall back to defaults. Sender is the allow-listed user who
// triggered it and only ends up in the logs.
type BroadcastRequest struct {
	Sender string
	Title  string
	Body   string
	Tag    string
	URL    string
	Icon   string
}

// PushService manages subscriptions and manual pushes
type PushService struct {
	users    PushUserStore
	subs     SubscriptionWriter
	notifier Notifier
	icon     string
}

// NewPushService creates a new push service
func NewPushService(users PushUserStore, subs SubscriptionWriter, notifier Notifier, icon string) *PushService {
	return &PushService{
		users:    users,
		subs:     subs,
		notifier: notifier,
		icon:     icon,
	}
}

// Subscribe registers an endpoint for a user
func (s *PushService) Subscribe(ctx context.Context, username, endpoint, p256dh, auth string) (*models.PushSubscription, error) {
	username = strings.TrimSpace(username)
	if username == "" || endpoint == "" || p256dh == "" || auth == "" {
		return nil, apperr.Validation("username + subscription required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscriber: %w", err)
	}

	sub := &models.PushSubscription{
		Endpoint: endpoint,
		UserID:   user.ID,
		P256dh:   p256dh,
		Auth:     auth,
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	log.Info().
		Str("username", user.Username).
		Str("endpoint", shortEndpoint(endpoint)).
		Msg("Push subscription saved")
	return sub, nil
}

// Unsubscribe removes an endpoint. It reports whether the endpoint existed.
func (s *PushService) Unsubscribe(ctx context.Context, endpoint string) (bool, error) {
	if endpoint == "" {
		return false, apperr.Validation("endpoint required")
	}
	removed, err := s.subs.DeleteByEndpoint(ctx, endpoint)
	if err != nil {
		return false, fmt.Errorf("failed to remove subscription: %w", err)
	}
	return removed, nil
}

// Broadcast sends a message to every user with at least one subscription and
// returns how many users were targeted
func (s *PushService) Broadcast(ctx context.Context, req BroadcastRequest) (int, DispatchReport, error) {
	userIDs, err := s.users.ListIDsWithSubscriptions(ctx)
	if err != nil {
		return 0, DispatchReport{}, fmt.Errorf("failed to resolve broadcast recipients: %w", err)
	}
	if len(userIDs) == 0 {
		return 0, DispatchReport{}, apperr.Validation("no recipients")
	}

	n := Notification{
		Title:   orDefault(req.Title, "Broadcast 📣"),
		Body:    orDefault(req.Body, "Hello everyone!"),
		Tag:     orDefault(req.Tag, "broadcast"),
		URL:     orDefault(req.URL, "/"),
		Icon:    orDefault(req.Icon, s.icon),
		Urgency: UrgencyNormal,
	}
	log.Info().Str("sender", req.Sender).Int("users", len(userIDs)).Str("tag", n.Tag).Msg("Broadcasting")
	report, err := s.notifier.Dispatch(ctx, userIDs, n)
	if err != nil {
		return len(userIDs), report, fmt.Errorf("failed to broadcast: %w", err)
	}
	return len(userIDs), report, nil
}

// SendTest confirms to a user that their devices receive notifications
func (s *PushService) SendTest(ctx context.Context, username string) (DispatchReport, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return DispatchReport{}, apperr.Validation("username required")
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	report, err := s.notifier.Dispatch(ctx, []string{user.ID}, Notification{
		Title: "Hello!",
		Body:  "Notifications are working 🎉",
		Tag:   "test",
		Icon:  s.icon,
	})
	if err != nil {
		return report, fmt.Errorf("failed to send test notification: %w", err)
	}
	return report, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
