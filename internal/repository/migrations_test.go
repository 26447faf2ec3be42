package repository

import (
	"errors"
	"strings"
	"testing"

	"availability-backend/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected migrations %+v", migrations)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Fatalf("migrations not ordered: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
	if !strings.Contains(migrations[0].SQL, "reminders_sent") {
		t.Fatal("init migration must create reminders_sent")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{&pgconn.PgError{Code: "23505"}, apperr.ErrConflict},
		{&pgconn.PgError{Code: "40001"}, apperr.ErrConflict},
		{&pgconn.PgError{Code: "40P01"}, apperr.ErrConflict},
		{&pgconn.PgError{Code: "23503"}, apperr.ErrStorage},
		{errors.New("connection reset"), apperr.ErrStorage},
	}
	for _, tc := range cases {
		got := classify("failed", tc.err)
		if !errors.Is(got, tc.kind) {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.kind, got)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("%v: cause must stay reachable", tc.err)
		}
	}
	if classify("failed", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
