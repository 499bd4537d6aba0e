// Package api exposes the event service over HTTP: search, submissions,
// moderation, external previews, the live feed, health and metrics.
package api

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/rubiojr/eventa/pkg/realtime"
	"github.com/rubiojr/eventa/pkg/search"
	"github.com/rubiojr/eventa/pkg/storage"
)

type Server struct {
	store      *storage.Store
	search     *search.Service
	ingestor   *providers.Ingestor
	hub        *realtime.Hub
	adminToken string
	now        func() time.Time
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

type Option func(*Server)

// WithIngestor enables the external preview endpoint.
func WithIngestor(i *providers.Ingestor) Option {
	return func(s *Server) { s.ingestor = i }
}

// WithHub sets the hub approvals are broadcast on.
func WithHub(h *realtime.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithAdminToken sets the bearer token the moderation routes require. The
// routes answer 404 while the token is empty.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(store *storage.Store, searchService *search.Service, opts ...Option) *Server {
	s := &Server{
		store:  store,
		search: searchService,
		now:    time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.ForService("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = realtime.NewHub(0)
	}
	return s
}

// Hub returns the live feed hub.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Handler returns the complete middleware chain. The live feed is served
// outside the gzip wrapper since websocket upgrades need the raw connection.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	s.RegisterRoutes(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /api/events/live", s.HandleLive)
	root.Handle("/", gzhttp.GzipHandler(api))

	return CorsMiddleware(s.logRequests(root))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(ErrorResponse{Error: "Internal error", Message: "response could not be encoded"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debugf("Error writing response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// isAdmin checks the Authorization bearer token against the configured one.
func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

// requireAdmin wraps moderation and provider preview handlers.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			s.writeError(w, http.StatusNotFound, "Not found", "Admin API is disabled")
			return
		}
		if !s.isAdmin(r) {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized", "A valid admin token is required")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		s.logger.Debugf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(started).Round(time.Microsecond))
	})
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Edit-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
