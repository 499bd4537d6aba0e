// Package storage is the SQLite event store. It owns submission CRUD,
// moderation state changes and the database side of event search.
//
// Timestamps are stored as fixed-width UTC strings (core.TimestampLayout) so
// range predicates compare lexically.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/db"
	"github.com/rubiojr/eventa/pkg/edittoken"
	"github.com/rubiojr/eventa/pkg/log"
)

var (
	// ErrNotFound is returned when an event id does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidToken is returned when an edit token does not match.
	ErrInvalidToken = errors.New("invalid edit token")
	// ErrDuplicate is returned when an imported event with the same source,
	// title and start time is already stored.
	ErrDuplicate = errors.New("event already imported")
)

// SourceSubmission marks events created through the public submission API.
const SourceSubmission = "submission"

const eventColumns = `e.id, e.title, e.description, e.venue_name, e.address, e.city,
	e.lat, e.lng, e.categories, e.price_free, e.image_url, e.url,
	e.start_at, e.end_at, e.status, e.source, e.moderation_note,
	e.created_at, e.updated_at`

// Store is a handle on the event database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database at path and applies pending migrations.
func Open(path string, opts ...Option) (*Store, error) {
	conn, err := driver.Open(path, registerFunctions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them applied
	// and serializes writers.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{db: conn, now: time.Now, logger: log.ForService("storage")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection, for migrations and maintenance.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateEvent validates e, assigns it an id and stores it. The returned edit
// token is only ever available here; the store keeps its hash.
func (s *Store) CreateEvent(ctx context.Context, e *core.Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("invalid event: %w", err)
	}

	token, hash, err := edittoken.New()
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	e.ID = uuid.NewString()
	if e.Status == "" {
		e.Status = core.StatusPending
	}
	if e.Source == "" {
		e.Source = SourceSubmission
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	categories, err := encodeCategories(e.Categories)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, venue_name, address, city,
			lat, lng, categories, price_free, image_url, url, start_at, end_at,
			status, source, moderation_note, edit_token_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.VenueName, e.Address, e.City,
		nullFloat(e.Lat), nullFloat(e.Lng), categories, e.PriceFree, e.ImageURL, e.URL,
		core.FormatTimestamp(e.StartAt), nullTime(e.EndAt),
		string(e.Status), e.Source, e.ModerationNote, hash,
		core.FormatTimestamp(now), core.FormatTimestamp(now),
	)
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debugf("created event %s (%s) from %s", e.ID, e.Status, e.Source)
	return token, nil
}

// GetEvent loads one event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*core.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading event %s: %w", id, err)
	}
	return e, nil
}

// UpdateEvent replaces the editable fields of event id when token matches.
// An edited event goes back to pending moderation.
func (s *Store) UpdateEvent(ctx context.Context, id, token string, e *core.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	categories, err := encodeCategories(e.Categories)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	var hash string
	err = tx.QueryRowContext(ctx, `SELECT edit_token_hash FROM events WHERE id = ?`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading edit token: %w", err)
	}
	if !edittoken.Verify(token, hash) {
		return ErrInvalidToken
	}

	now := s.now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE events SET title = ?, description = ?, venue_name = ?, address = ?,
			city = ?, lat = ?, lng = ?, categories = ?, price_free = ?, image_url = ?,
			url = ?, start_at = ?, end_at = ?, status = ?, moderation_note = '',
			updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, e.VenueName, e.Address, e.City,
		nullFloat(e.Lat), nullFloat(e.Lng), categories, e.PriceFree, e.ImageURL,
		e.URL, core.FormatTimestamp(e.StartAt), nullTime(e.EndAt),
		string(core.StatusPending), core.FormatTimestamp(now), id,
	)
	if err != nil {
		return fmt.Errorf("updating event %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	committed = true

	e.ID = id
	e.Status = core.StatusPending
	e.ModerationNote = ""
	e.UpdatedAt = now
	return nil
}

// SetStatus records a moderation decision and returns the updated event.
func (s *Store) SetStatus(ctx context.Context, id string, status core.Status, note string) (*core.Event, error) {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, moderation_note = ?, updated_at = ? WHERE id = ?`,
		string(status), note, core.FormatTimestamp(s.now()), id)
	if err != nil {
		return nil, fmt.Errorf("setting status of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("setting status of %s: %w", id, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	s.logger.Infof("event %s is now %s", id, status)
	return s.GetEvent(ctx, id)
}

// ListByStatus returns events in status, oldest submission first. A limit
// of zero or less returns every match.
func (s *Store) ListByStatus(ctx context.Context, status core.Status, limit int) ([]*core.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.status = ? ORDER BY e.created_at, e.seq`
	args := []any{string(status)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s events: %w", status, err)
	}
	defer rows.Close()

	var events []*core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s events: %w", status, err)
	}
	return events, nil
}

// HasEvent reports whether an event with the same source, title and start
// time is already stored. Importers use it to stay idempotent.
func (s *Store) HasEvent(ctx context.Context, source, title string, startAt time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE source = ? AND title = ? AND start_at = ?`,
		source, title, core.FormatTimestamp(startAt)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking for existing event: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of events per status.
func (s *Store) Count(ctx context.Context) (map[core.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	defer rows.Close()

	counts := map[core.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[core.Status(status)] = n
	}
	return counts, rows.Err()
}

// Optimize merges the full-text index segments.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO events_fts(events_fts) VALUES('optimize')`); err != nil {
		return fmt.Errorf("optimizing search index: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*core.Event, error) {
	var (
		e                    core.Event
		lat, lng             sql.NullFloat64
		categories           string
		startAt, status      string
		endAt                sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(&e.ID, &e.Title, &e.Description, &e.VenueName, &e.Address, &e.City,
		&lat, &lng, &categories, &e.PriceFree, &e.ImageURL, &e.URL,
		&startAt, &endAt, &status, &e.Source, &e.ModerationNote,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		e.Lat = &lat.Float64
		e.Lng = &lng.Float64
	}
	if err := json.Unmarshal([]byte(categories), &e.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories of %s: %w", e.ID, err)
	}
	if e.Categories == nil {
		e.Categories = []string{}
	}
	e.Status = core.Status(status)

	if e.StartAt, err = core.ParseTimestamp(startAt); err != nil {
		return nil, fmt.Errorf("parsing start_at of %s: %w", e.ID, err)
	}
	if endAt.Valid {
		t, err := core.ParseTimestamp(endAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing end_at of %s: %w", e.ID, err)
		}
		e.EndAt = &t
	}
	if e.CreatedAt, err = core.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = core.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at of %s: %w", e.ID, err)
	}
	return &e, nil
}

func encodeCategories(categories []string) (string, error) {
	clean := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			clean = append(clean, c)
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("encoding categories: %w", err)
	}
	return string(data), nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return core.FormatTimestamp(*t)
}
