package handlers

import (
	"context"
	"net/http"

	"availability-backend/internal/middleware"
	"availability-backend/internal/models"
	"availability-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PushManager manages push subscriptions and manual pushes
type PushManager interface {
	Subscribe(ctx context.Context, username, endpoint, p256dh, auth string) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, endpoint string) (bool, error)
	Broadcast(ctx context.Context, req services.BroadcastRequest) (int, services.DispatchReport, error)
	SendTest(ctx context.Context, username string) (services.DispatchReport, error)
}

// PushHandler handles push-related HTTP requests
type PushHandler struct {
	push PushManager
}

// NewPushHandler creates a new push handler
func NewPushHandler(push PushManager) *PushHandler {
	return &PushHandler{push: push}
}

// SubscribeRequest is a browser PushSubscription tagged with its owner
type SubscribeRequest struct {
	Username     string `json:"username" validate:"required"`
	Subscription struct {
		Endpoint string `json:"endpoint" validate:"required,url"`
		Keys     struct {
			P256dh string `json:"p256dh" validate:"required"`
			Auth   string `json:"auth" validate:"required"`
		} `json:"keys"`
	} `json:"subscription"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := decodeBody(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	_, err := h.push.Subscribe(r.Context(), req.Username, req.Subscription.Endpoint, req.Subscription.Keys.P256dh, req.Subscription.Keys.Auth)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to subscribe")
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UnsubscribeRequest identifies the endpoint to remove
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// Unsubscribe handles DELETE /api/push/subscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := decodeBody(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	removed, err := h.push.Unsubscribe(r.Context(), req.Endpoint)
	if err != nil {
		log.Error().Err(err).Msg("Failed to unsubscribe")
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true, "removed": removed})
}

// BroadcastRequest is an optional override of the broadcast defaults
type BroadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

// Broadcast handles POST /api/push/broadcast. An empty body uses the defaults.
func (h *PushHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			respondAppError(w, err)
			return
		}
	}

	sender := middleware.GetUsername(r.Context())
	sent, report, err := h.push.Broadcast(r.Context(), services.BroadcastRequest{
		Sender: sender,
		Title:  req.Title,
		Body:   req.Body,
		Tag:    req.Tag,
		URL:    req.URL,
		Icon:   req.Icon,
	})
	if err != nil {
		log.Error().Err(err).Str("sender", sender).Msg("Failed to broadcast")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("sender", sender).
		Int("users", sent).
		Int("delivered", report.Delivered).
		Int("pruned", report.Pruned).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("Broadcast sent")

	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "sent": sent})
}

// SendTestRequest names the user whose devices get the test message
type SendTestRequest struct {
	Username string `json:"username" validate:"required"`
}

// SendTest handles POST /api/push/test
func (h *PushHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req SendTestRequest
	if err := decodeBody(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	report, err := h.push.SendTest(r.Context(), req.Username)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to send test notification")
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "delivered": report.Delivered})
}
