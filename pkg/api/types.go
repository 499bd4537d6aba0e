package api

import (
	"fmt"
	"strings"

	"github.com/rubiojr/eventa/pkg/core"
)

// EventRequest is the body of a submission or an edit.
type EventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	VenueName   string   `json:"venueName"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Categories  []string `json:"categories"`
	PriceFree   bool     `json:"priceFree"`
	ImageURL    string   `json:"imageUrl"`
	URL         string   `json:"url"`
	StartAt     string   `json:"startAt"`
	EndAt       string   `json:"endAt"`
}

// Event converts the request into a core event, parsing the timestamps.
func (r EventRequest) Event() (*core.Event, error) {
	e := &core.Event{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		VenueName:   strings.TrimSpace(r.VenueName),
		Address:     strings.TrimSpace(r.Address),
		City:        strings.TrimSpace(r.City),
		Lat:         r.Lat,
		Lng:         r.Lng,
		Categories:  r.Categories,
		PriceFree:   r.PriceFree,
		ImageURL:    strings.TrimSpace(r.ImageURL),
		URL:         strings.TrimSpace(r.URL),
	}
	if r.StartAt == "" {
		return nil, fmt.Errorf("startAt is required")
	}
	start, err := core.ParseTimestamp(r.StartAt)
	if err != nil {
		return nil, fmt.Errorf("invalid startAt %q", r.StartAt)
	}
	e.StartAt = start
	if r.EndAt != "" {
		end, err := core.ParseTimestamp(r.EndAt)
		if err != nil {
			return nil, fmt.Errorf("invalid endAt %q", r.EndAt)
		}
		e.EndAt = &end
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// EventResponse is a stored event as returned by the API.
type EventResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	VenueName      string   `json:"venueName"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	Categories     []string `json:"categories"`
	PriceFree      bool     `json:"priceFree"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	URL            string   `json:"url,omitempty"`
	StartAt        string   `json:"startAt"`
	EndAt          *string  `json:"endAt"`
	Status         string   `json:"status"`
	Source         string   `json:"source"`
	ModerationNote string   `json:"moderationNote,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

func newEventResponse(e *core.Event) EventResponse {
	categories := e.Categories
	if categories == nil {
		categories = []string{}
	}
	resp := EventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		VenueName:      e.VenueName,
		Address:        e.Address,
		City:           e.City,
		Lat:            e.Lat,
		Lng:            e.Lng,
		Categories:     categories,
		PriceFree:      e.PriceFree,
		ImageURL:       e.ImageURL,
		URL:            e.URL,
		StartAt:        core.FormatTimestamp(e.StartAt),
		Status:         string(e.Status),
		Source:         e.Source,
		ModerationNote: e.ModerationNote,
		CreatedAt:      core.FormatTimestamp(e.CreatedAt),
		UpdatedAt:      core.FormatTimestamp(e.UpdatedAt),
	}
	if e.EndAt != nil {
		end := core.FormatTimestamp(*e.EndAt)
		resp.EndAt = &end
	}
	return resp
}

type SubmitResponse struct {
	ID        string `json:"id"`
	EditToken string `json:"editToken"`
	Status    string `json:"status"`
}

type ListEventsResponse struct {
	Status string          `json:"status"`
	Events []EventResponse `json:"events"`
	Count  int             `json:"count"`
}

// ModerationRequest is the optional body of approve and reject calls.
type ModerationRequest struct {
	Note string `json:"note"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Events    map[string]int `json:"events,omitempty"`
}
