package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/urfave/cli/v3"
)

// SubmitCommand creates the submit command
func SubmitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Submit an event for moderation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Event title", Required: true},
			&cli.StringFlag{Name: "start", Usage: "Start time (RFC3339, or YYYY-MM-DD HH:MM in the configured time zone)", Required: true},
			&cli.StringFlag{Name: "end", Usage: "End time, same formats as --start"},
			&cli.StringFlag{Name: "description", Usage: "Event description"},
			&cli.StringFlag{Name: "venue", Usage: "Venue name"},
			&cli.StringFlag{Name: "address", Usage: "Street address"},
			&cli.StringFlag{Name: "city", Usage: "City"},
			&cli.FloatFlag{Name: "lat", Usage: "Latitude"},
			&cli.FloatFlag{Name: "lng", Usage: "Longitude"},
			&cli.StringSliceFlag{Name: "category", Usage: "Event category, repeatable"},
			&cli.BoolFlag{Name: "free", Usage: "The event is free"},
			&cli.StringFlag{Name: "url", Usage: "Event page"},
			&cli.StringFlag{Name: "image-url", Usage: "Event image"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c.String("config"), c.Bool("debug"))
			if err != nil {
				return err
			}
			loc := cfg.Location()

			e := &core.Event{
				Title:       c.String("title"),
				Description: c.String("description"),
				VenueName:   c.String("venue"),
				Address:     c.String("address"),
				City:        c.String("city"),
				Categories:  c.StringSlice("category"),
				PriceFree:   c.Bool("free"),
				URL:         c.String("url"),
				ImageURL:    c.String("image-url"),
			}
			if e.StartAt, err = parseLocalTime(c.String("start"), loc); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if c.IsSet("end") {
				end, err := parseLocalTime(c.String("end"), loc)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				e.EndAt = &end
			}
			if c.IsSet("lat") {
				lat := c.Float("lat")
				e.Lat = &lat
			}
			if c.IsSet("lng") {
				lng := c.Float("lng")
				e.Lng = &lng
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			token, err := store.CreateEvent(ctx, e)
			if err != nil {
				return err
			}
			fmt.Printf("Submitted %s (%s)\nEdit token: %s\n", e.ID, e.Status, token)
			return nil
		},
	}
}

var localLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseLocalTime accepts RFC3339 timestamps and zone-less local times read
// in loc.
func parseLocalTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := core.ParseTimestamp(s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
