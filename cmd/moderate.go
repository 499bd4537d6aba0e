package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/urfave/cli/v3"
)

// ModerateCommand creates the moderate command
func ModerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "moderate",
		Usage: "Review submitted events",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List events by moderation status",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "pending, approved or rejected", Value: string(core.StatusPending)},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of events (0 for no limit)", Value: 50},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					status, err := core.ParseStatus(c.String("status"))
					if err != nil {
						return err
					}
					return listEvents(ctx, c.String("config"), c.Bool("debug"), status, int(c.Int("limit")))
				},
			},
			{
				Name:      "approve",
				Usage:     "Approve an event, making it searchable",
				ArgsUsage: "<event-id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "note", Usage: "Moderation note"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return setStatus(ctx, c, core.StatusApproved)
				},
			},
			{
				Name:      "reject",
				Usage:     "Reject an event",
				ArgsUsage: "<event-id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "note", Usage: "Moderation note"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return setStatus(ctx, c, core.StatusRejected)
				},
			},
		},
	}
}

func listEvents(ctx context.Context, configPath string, debug bool, status core.Status, limit int) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.ListByStatus(ctx, status, limit)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d %s events", len(events), status)))
	if len(events) == 0 {
		fmt.Println(noDataStyle.Render("Nothing to review"))
		return nil
	}
	for _, e := range events {
		fmt.Println(renderEvent(e))
	}
	return nil
}

func setStatus(ctx context.Context, c *cli.Command, status core.Status) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("an event id is required")
	}

	cfg, err := loadConfig(c.String("config"), c.Bool("debug"))
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.SetStatus(ctx, id, status, c.String("note"))
	if err != nil {
		return err
	}
	metrics.ModerationDecisions.WithLabelValues(string(status)).Inc()
	fmt.Printf("%s %q is now %s\n", e.ID, e.Title, e.Status)
	return nil
}
