package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"availability-backend/internal/config"
	"availability-backend/internal/models"

	"github.com/SherClockHolmes/webpush-go"
)

// PushError is a non-2xx answer from a push service
type PushError struct {
	StatusCode int
	Body       string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// WebPushSender delivers payloads through the Web Push protocol with VAPID
type WebPushSender struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
	client     *http.Client
}

// NewWebPushSender creates a sender from the push configuration
func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebPushSender{
		// webpush-go adds the mailto: scheme itself
		subscriber: strings.TrimPrefix(cfg.Subject, "mailto:"),
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		ttl:        cfg.TTL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send encrypts payload for the subscription and posts it to its endpoint
func (s *WebPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte, urgency Urgency) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
		Urgency:         webpush.Urgency(urgency),
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &PushError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh (public, private) VAPID key pair
func GenerateVAPIDKeys() (string, string, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
