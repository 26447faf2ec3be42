package services

import (
	"context"
	"fmt"
	"strings"

	"availability-backend/internal/apperr"
)

// UserStore is the part of the user repository the user service needs
type UserStore interface {
	EnsureUsernames(ctx context.Context, usernames []string) (int, error)
}

// UserService handles the fixed group of users
type UserService struct {
	userRepo UserStore
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// Seed creates every missing user of the group and returns how many were new
func (s *UserService) Seed(ctx context.Context, usernames []string) (int, error) {
	seen := make(map[string]struct{}, len(usernames))
	var names []string
	for _, name := range usernames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return 0, apperr.Validation("no usernames given")
	}

	created, err := s.userRepo.EnsureUsernames(ctx, names)
	if err != nil {
		return created, fmt.Errorf("failed to seed users: %w", err)
	}
	return created, nil
}
