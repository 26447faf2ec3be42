package services

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	maxTitleLen = 120
	maxBodyLen  = 500
	maxTagLen   = 64
)

// Urgency hints the push service how eagerly to deliver a message
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// Notification is one logical push message
type Notification struct {
	Title   string
	Body    string
	Tag     string
	URL     string
	Icon    string
	Urgency Urgency
}

// pushPayload is the JSON document the service worker reads
type pushPayload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Tag   string      `json:"tag,omitempty"`
	Icon  string      `json:"icon,omitempty"`
	Data  payloadData `json:"data"`
}

type payloadData struct {
	URL string `json:"url"`
}

// Normalize truncates over-long fields and fills defaults
func (n Notification) Normalize() Notification {
	n.Title = truncate(n.Title, maxTitleLen)
	n.Body = truncate(n.Body, maxBodyLen)
	n.Tag = truncate(n.Tag, maxTagLen)
	if n.URL == "" {
		n.URL = "/"
	}
	if n.Urgency == "" {
		n.Urgency = UrgencyNormal
	}
	return n
}

// Payload renders the normalized notification as the push message body
func (n Notification) Payload() ([]byte, error) {
	n = n.Normalize()
	data, err := json.Marshal(pushPayload{
		Title: n.Title,
		Body:  n.Body,
		Tag:   n.Tag,
		Icon:  n.Icon,
		Data:  payloadData{URL: n.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}
	return data, nil
}

// truncate cuts s to at most max characters without splitting a rune
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func thresholdReminder(day string, afterCount, threshold int, icon string) Notification {
	return Notification{
		Title:   fmt.Sprintf("Day has %d yeses 🎉", threshold),
		Body:    fmt.Sprintf("%s now has at least %d yeses. Want to vote too?", day, afterCount),
		Tag:     "reminder-" + day,
		URL:     "/events/" + day,
		Icon:    icon,
		Urgency: UrgencyHigh,
	}
}

func progressNotice(day string, totalVotes int, icon string) Notification {
	return Notification{
		Title:   "Please vote for " + day,
		Body:    fmt.Sprintf("%d people have voted for %s so far.", totalVotes, day),
		Tag:     "progress-" + day,
		URL:     "/events/" + day,
		Icon:    icon,
		Urgency: UrgencyLow,
	}
}
