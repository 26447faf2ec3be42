package models

import (
	"time"

	"availability-backend/internal/apperr"
)

// DayLayout is the wire and storage format of a calendar day
const DayLayout = "2006-01-02"

// Status is a user's availability on a day
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusMaybe       Status = "MAYBE"
	StatusUnavailable Status = "UNAVAILABLE"
)

// Valid reports whether s is one of the three known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusMaybe, StatusUnavailable:
		return true
	}
	return false
}

// User represents a member of the group
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// CalendarDay represents one UTC calendar date
type CalendarDay struct {
	ID        string    `json:"id"`
	Day       time.Time `json:"day"`
	CreatedAt time.Time `json:"createdAt"`
}

// Availability represents a user's vote for a day
type Availability struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	DayID     string    `json:"dayId"`
	Status    Status    `json:"status"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Vote is an availability joined with its voter, as shown on a day
type Vote struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	Status   Status  `json:"status"`
	Comment  *string `json:"comment"`
}

// DaySummary aggregates the votes cast for one day
type DaySummary struct {
	Day    string         `json:"day"`
	Counts map[Status]int `json:"counts"`
	Votes  []Vote         `json:"votes"`
}

// PushSubscription is a browser push endpoint registered by a user
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	UserID    string    `json:"userId"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight time
func ParseDay(s string) (time.Time, error) {
	if len(s) != len(DayLayout) {
		return time.Time{}, apperr.Validation("bad day %q (YYYY-MM-DD)", s)
	}
	day, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("bad day %q (YYYY-MM-DD)", s)
	}
	return day, nil
}

// FormatDay renders a day as YYYY-MM-DD
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// TruncateDay drops the time component of t in UTC
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Weekday returns the Monday-based weekday of a day: Monday=0 ... Sunday=6
func Weekday(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}
