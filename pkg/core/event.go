package core

import (
	"fmt"
	"time"
)

// Status is the moderation state of a stored event.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string coming from a request or the CLI.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// Event is a community event as persisted in the event store.
//
// Lat and Lng are optional and travel together: an event either has both or
// neither. EndAt may be nil for single-moment events; queries treat a missing
// end as equal to StartAt.
type Event struct {
	ID          string
	Title       string
	Description string
	VenueName   string
	Address     string
	City        string
	Lat         *float64
	Lng         *float64
	Categories  []string
	PriceFree   bool
	ImageURL    string
	URL         string
	StartAt     time.Time
	EndAt       *time.Time

	Status         Status
	Source         string
	ModerationNote string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasGeo reports whether the event carries coordinates.
func (e *Event) HasGeo() bool {
	return e.Lat != nil && e.Lng != nil
}

// EffectiveEnd returns EndAt, or StartAt when the event has no end.
func (e *Event) EffectiveEnd() time.Time {
	if e.EndAt != nil {
		return *e.EndAt
	}
	return e.StartAt
}

// Validate checks the fields every submission must carry.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.StartAt.IsZero() {
		return fmt.Errorf("start time is required")
	}
	if e.EndAt != nil && e.EndAt.Before(e.StartAt) {
		return fmt.Errorf("end time %s is before start time %s", FormatTimestamp(*e.EndAt), FormatTimestamp(e.StartAt))
	}
	if (e.Lat == nil) != (e.Lng == nil) {
		return fmt.Errorf("lat and lng must be provided together")
	}
	if e.Lat != nil && (*e.Lat < -90 || *e.Lat > 90) {
		return fmt.Errorf("lat %f out of range", *e.Lat)
	}
	if e.Lng != nil && (*e.Lng < -180 || *e.Lng > 180) {
		return fmt.Errorf("lng %f out of range", *e.Lng)
	}
	return nil
}
