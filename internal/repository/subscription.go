package repository

import (
	"context"
	"time"

	"availability-backend/internal/models"
)

// SubscriptionRepository handles database operations for push subscriptions
type SubscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert registers an endpoint for a user. Re-subscribing an endpoint moves
// it to the new user and refreshes its keys.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO push_subscriptions (endpoint, user_id, p256dh, auth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (endpoint)
		DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, sub.Endpoint, sub.UserID, sub.P256dh, sub.Auth, now).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return classify("failed to upsert push subscription", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription. Deleting an unknown endpoint is not an error.
func (r *SubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return false, classify("failed to delete push subscription", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUserIDs returns every subscription owned by any of userIDs
func (r *SubscriptionRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT endpoint, user_id, p256dh, auth, created_at, updated_at
		FROM push_subscriptions
		WHERE user_id = ANY($1::uuid[])
		ORDER BY created_at
	`, userIDs)
	if err != nil {
		return nil, classify("failed to list push subscriptions", err)
	}
	defer rows.Close()

	var subs []*models.PushSubscription
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.Endpoint, &s.UserID, &s.P256dh, &s.Auth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, classify("failed to scan push subscription", err)
		}
		subs = append(subs, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating push subscriptions", err)
	}
	return subs, nil
}
