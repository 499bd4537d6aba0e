package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rubiojr/eventa/pkg/search"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search approved events",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "lat", Usage: "Latitude to sort by distance from"},
			&cli.FloatFlag{Name: "lng", Usage: "Longitude to sort by distance from"},
			&cli.FloatFlag{Name: "radius", Usage: "Only events within this many kilometres"},
			&cli.BoolFlag{Name: "free", Usage: "Only free events"},
			&cli.StringFlag{Name: "date-range", Usage: "today, weekend, month or all"},
			&cli.StringSliceFlag{Name: "category", Usage: "Only events in these categories"},
			&cli.BoolFlag{Name: "web", Usage: "Supplement with web results when few events match"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 10},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw JSON response"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			req := search.Request{
				Query:      strings.Join(c.Args().Slice(), " "),
				IncludeWeb: c.Bool("web"),
				Limit:      int(c.Int("limit")),
				Filters: search.Filters{
					DateRange:  c.String("date-range"),
					Categories: c.StringSlice("category"),
				},
			}
			if c.IsSet("lat") || c.IsSet("lng") {
				lat, lng := c.Float("lat"), c.Float("lng")
				req.UserLat, req.UserLng = &lat, &lng
			}
			if c.IsSet("radius") {
				radius := c.Float("radius")
				req.Filters.RadiusKm = &radius
			}
			if c.IsSet("free") {
				free := c.Bool("free")
				req.Filters.Free = &free
			}
			return searchEvents(ctx, c.String("config"), c.Bool("debug"), req, c.Bool("json"))
		},
	}
}

func searchEvents(ctx context.Context, configPath string, debug bool, req search.Request, asJSON bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newSearchService(cfg, store)
	if err != nil {
		return err
	}
	resp, err := svc.Search(ctx, req)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Print(renderResults(req.Query, resp.Results))
	return nil
}
