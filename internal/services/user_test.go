package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"availability-backend/internal/apperr"
)

type fakeUserStore struct {
	got []string
}

func (f *fakeUserStore) EnsureUsernames(_ context.Context, usernames []string) (int, error) {
	f.got = usernames
	return len(usernames), nil
}

func TestSeedTrimsAndDedups(t *testing.T) {
	store := &fakeUserStore{}
	created, err := NewUserService(store).Seed(context.Background(), []string{" anna", "niklas", "anna", "  "})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 2 || strings.Join(store.got, ",") != "anna,niklas" {
		t.Fatalf("unexpected seed: created=%d names=%v", created, store.got)
	}
}

func TestSeedRequiresNames(t *testing.T) {
	if _, err := NewUserService(&fakeUserStore{}).Seed(context.Background(), []string{" "}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
