package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/rubiojr/eventa/pkg/realtime"
	"github.com/rubiojr/eventa/pkg/search"
	"github.com/rubiojr/eventa/pkg/storage"
	"github.com/rubiojr/eventa/pkg/version"
)

const maxBodyBytes = 64 << 10

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := search.ParseRequest(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) HandleSearchQuery(w http.ResponseWriter, r *http.Request) {
	req, err := search.ParseQueryParams(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req search.Request) {
	resp, err := s.search.Search(r.Context(), req)
	if errors.Is(err, search.ErrInvalidRequest) {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	token, err := s.store.CreateEvent(r.Context(), e)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to store event", err.Error())
		return
	}
	metrics.Submissions.Inc()
	s.logger.Infof("new submission %s %q", e.ID, e.Title)

	s.writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:        e.ID,
		EditToken: token,
		Status:    string(e.Status),
	})
}

// HandleGetEvent returns approved events to anyone. Other states are only
// visible to moderators.
func (s *Server) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.store.GetEvent(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && e.Status != core.StatusApproved && !s.isAdmin(r)) {
		s.writeError(w, http.StatusNotFound, "Event not found", fmt.Sprintf("Event '%s' does not exist", id))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load event", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newEventResponse(e))
}

func (s *Server) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token := r.Header.Get("X-Edit-Token")
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "Missing edit token", "The X-Edit-Token header is required")
		return
	}
	e, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}

	err := s.store.UpdateEvent(r.Context(), id, token, e)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Event not found", fmt.Sprintf("Event '%s' does not exist", id))
		return
	case errors.Is(err, storage.ErrInvalidToken):
		s.writeError(w, http.StatusForbidden, "Invalid edit token", "The edit token does not match this event")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "Failed to update event", err.Error())
		return
	}

	updated, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load event", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newEventResponse(updated))
}

func (s *Server) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	if statusParam == "" {
		statusParam = string(core.StatusPending)
	}
	status, err := core.ParseStatus(statusParam)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid status", err.Error())
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", fmt.Sprintf("limit must be a positive integer, got %q", l))
			return
		}
	}

	events, err := s.store.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list events", err.Error())
		return
	}
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = newEventResponse(e)
	}
	s.writeJSON(w, http.StatusOK, ListEventsResponse{Status: string(status), Events: out, Count: len(out)})
}

func (s *Server) HandleApprove(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, core.StatusApproved)
}

func (s *Server) HandleReject(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, core.StatusRejected)
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request, status core.Status) {
	id := r.PathValue("id")

	var body ModerationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	e, err := s.store.SetStatus(r.Context(), id, status, body.Note)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Event not found", fmt.Sprintf("Event '%s' does not exist", id))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to update status", err.Error())
		return
	}
	metrics.ModerationDecisions.WithLabelValues(string(status)).Inc()

	if status == core.StatusApproved {
		n := s.hub.Broadcast(realtime.NewApprovedNotice(e, s.now()))
		s.logger.Debugf("approval of %s sent to %d live clients", id, n)
	}
	s.writeJSON(w, http.StatusOK, newEventResponse(e))
}

// HandleExternal fetches from a configured provider and returns what the
// admission filter would accept, without storing anything.
func (s *Server) HandleExternal(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	if s.ingestor == nil {
		s.writeError(w, http.StatusNotFound, "Provider not found", fmt.Sprintf("Provider '%s' does not exist", name))
		return
	}

	res, err := s.ingestor.Run(r.Context(), name)
	switch {
	case errors.Is(err, providers.ErrUnknownProvider):
		s.writeError(w, http.StatusNotFound, "Provider not found", fmt.Sprintf("Provider '%s' does not exist", name))
		return
	case errors.Is(err, providers.ErrRateLimited):
		w.Header().Set("Retry-After", "10")
		s.writeError(w, http.StatusTooManyRequests, "Rate limited", err.Error())
		return
	case errors.Is(err, providers.ErrCircuitOpen):
		s.writeError(w, http.StatusServiceUnavailable, "Provider unavailable", err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusBadGateway, "Provider failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: core.FormatTimestamp(s.now()),
		Version:   version.APIVersion(),
	}

	counts, err := s.store.Count(r.Context())
	if err != nil {
		health.Status = "degraded"
		s.logger.Warnf("health check could not count events: %v", err)
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health.Events = make(map[string]int, len(counts))
	for status, n := range counts {
		health.Events[string(status)] = n
	}
	s.writeJSON(w, http.StatusOK, health)
}

// decodeEvent reads an EventRequest body, writing a 400 when it is
// malformed or incomplete.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (*core.Event, bool) {
	var req EventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("decoding body: %v", err))
		return nil, false
	}
	e, err := req.Event()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid event", err.Error())
		return nil, false
	}
	return e, true
}
