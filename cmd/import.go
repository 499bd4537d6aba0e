package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/urfave/cli/v3"
)

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Fetch external providers and queue admitted events for moderation",
		ArgsUsage: "[provider...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would be admitted without storing anything",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List configured providers and available provider types",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return importEvents(ctx, c.String("config"), c.Bool("debug"), c.Args().Slice(), c.Bool("dry-run"), c.Bool("list"))
		},
	}
}

func importEvents(ctx context.Context, configPath string, debug bool, names []string, dryRun, list bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	ingestor, err := newIngestor(cfg)
	if err != nil {
		return err
	}
	registry := ingestor.Registry()

	if list {
		fmt.Printf("Provider types: %v\n", registry.Types())
		for _, name := range registry.Names() {
			fmt.Printf("  - %s (%s)\n", name, cfg.Providers[name].Type)
		}
		return nil
	}

	if len(names) == 0 {
		names = registry.Names()
	}
	if len(names) == 0 {
		fmt.Println("No providers configured")
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, name := range names {
		res, err := ingestor.Run(ctx, name)
		if err != nil {
			fmt.Printf("%s: %v\n", name, err)
			failed++
			continue
		}

		if dryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}

		stats, err := providers.Import(ctx, store, res, cfg.Location())
		if err != nil {
			return fmt.Errorf("importing from %s: %w", name, err)
		}
		fmt.Printf("%s: %d admitted, %d rejected, %d queued, %d already known\n",
			name, len(res.Admitted), len(res.Rejected), stats.Created, stats.Skipped)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(names))
	}
	return nil
}
