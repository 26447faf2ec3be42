package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"availability-backend/internal/apperr"
	"availability-backend/internal/models"
	"availability-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

type fakeVotes struct {
	got services.VoteRequest
	err error
}

func (f *fakeVotes) CastVote(_ context.Context, req services.VoteRequest) (*services.VoteResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.VoteResult{
		User:       &models.User{ID: "u1", Username: req.Username},
		Day:        req.Day,
		Vote:       &models.Availability{Status: req.Status, Comment: req.Comment},
		Crossed:    true,
		AfterCount: 3,
		TotalVotes: 4,
	}, nil
}

type fakeDays struct {
	blocked services.BlockRequest
	err     error
}

func (f *fakeDays) ListDays(context.Context) ([]*models.DaySummary, error) { return nil, f.err }

func (f *fakeDays) GetDay(_ context.Context, day string) (*models.DaySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.DaySummary{Day: day}, nil
}

func (f *fakeDays) BlockWeekdays(_ context.Context, req services.BlockRequest) (int, error) {
	f.blocked = req
	return 26, f.err
}

func newRouter(votes *fakeVotes, days *fakeDays) http.Handler {
	vh := NewVoteHandler(votes)
	dh := NewDayHandler(days, days)
	r := chi.NewRouter()
	r.Get("/api/days", dh.ListDays)
	r.Get("/api/days/{day}", dh.GetDay)
	r.Post("/api/days/{day}/vote", vh.CastVote)
	r.Post("/api/block-days", dh.BlockDays)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCastVoteResponse(t *testing.T) {
	votes := &fakeVotes{}
	rec := do(t, newRouter(votes, &fakeDays{}), http.MethodPost, "/api/days/2025-08-15/vote",
		`{"username":"niklas","status":"AVAILABLE","comment":"after 6"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if votes.got.Day != "2025-08-15" || votes.got.Status != models.StatusAvailable || *votes.got.Comment != "after 6" {
		t.Fatalf("unexpected request %+v", votes.got)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["userId"] != "u1" || resp["availableCount"] != float64(3) || resp["totalVotes"] != float64(4) || resp["thresholdCrossed"] != true {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestCastVoteRejectsBadStatus(t *testing.T) {
	votes := &fakeVotes{}
	rec := do(t, newRouter(votes, &fakeDays{}), http.MethodPost, "/api/days/2025-08-15/vote",
		`{"username":"niklas","status":"YES"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if votes.got.Username != "" {
		t.Fatal("service must not be called")
	}
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad day"), http.StatusBadRequest},
		{apperr.NotFound("user not found"), http.StatusNotFound},
		{apperr.Conflict("busy", errors.New("40001")), http.StatusServiceUnavailable},
		{apperr.Storage("down", errors.New("eof")), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := do(t, newRouter(&fakeVotes{err: tc.err}, &fakeDays{}), http.MethodPost, "/api/days/2025-08-15/vote",
			`{"username":"niklas","status":"MAYBE"}`)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if tc.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "1" {
			t.Fatal("expected Retry-After on conflict")
		}
	}
}

func TestBlockDays(t *testing.T) {
	days := &fakeDays{}
	rec := do(t, newRouter(&fakeVotes{}, days), http.MethodPost, "/api/block-days",
		`{"username":"niklas","weekdays":[0,2],"range":{"start":"2025-01-01","end":"2025-06-30"},"note":"training"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "{\"affectedDays\":26}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if days.blocked.Range == nil || days.blocked.Range.End != "2025-06-30" || days.blocked.Note != "training" {
		t.Fatalf("unexpected request %+v", days.blocked)
	}
}

func TestBlockDaysValidation(t *testing.T) {
	bodies := []string{
		`{"username":"niklas","weekdays":[]}`,
		`{"username":"niklas","weekdays":[7]}`,
		`{"weekdays":[1]}`,
		`{"username":"niklas","weekdays":[1.5]}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := do(t, newRouter(&fakeVotes{}, &fakeDays{}), http.MethodPost, "/api/block-days", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestListDaysEmpty(t *testing.T) {
	rec := do(t, newRouter(&fakeVotes{}, &fakeDays{}), http.MethodGet, "/api/days", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"days\":[]}\n" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetDayEmptyVotes(t *testing.T) {
	rec := do(t, newRouter(&fakeVotes{}, &fakeDays{}), http.MethodGet, "/api/days/2025-08-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Day   string        `json:"day"`
		Votes []models.Vote `json:"votes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Day != "2025-08-15" || resp.Votes == nil {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakePinger{}).Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("down")}).Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
