package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureUsernames creates the given users if they do not exist yet and
// returns how many were inserted
func (r *UserRepository) EnsureUsernames(ctx context.Context, usernames []string) (int, error) {
	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, name := range usernames {
		batch.Queue(`
			INSERT INTO users (id, username, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (username) DO NOTHING
		`, uuid.New().String(), name, now)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range usernames {
		tag, err := results.Exec()
		if err != nil {
			return inserted, classify("failed to create user", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE username = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user %q not found", username)
		}
		return nil, classify("failed to get user by username", err)
	}
	return &user, nil
}

// ListIDsWithoutVote returns the ids of users that have no availability on the day
func (r *UserRepository) ListIDsWithoutVote(ctx context.Context, dayID string) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM availabilities a
			WHERE a.user_id = u.id AND a.day_id = $1
		)
		ORDER BY u.username
	`
	return r.collectIDs(ctx, "failed to list users without vote", query, dayID)
}

// ListIDsWithSubscriptions returns the ids of users with at least one push subscription
func (r *UserRepository) ListIDsWithSubscriptions(ctx context.Context) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		WHERE EXISTS (SELECT 1 FROM push_subscriptions s WHERE s.user_id = u.id)
		ORDER BY u.username
	`
	return r.collectIDs(ctx, "failed to list subscribed users", query)
}

func (r *UserRepository) collectIDs(ctx context.Context, msg, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(msg, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(fmt.Sprintf("%s: scan", msg), err)
	}
	return ids, nil
}
