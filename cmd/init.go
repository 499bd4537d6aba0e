package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rubiojr/eventa/pkg/config"
	"github.com/urfave/cli/v3"
)

// InitCommand creates the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize configuration and the event database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return initConfig(c.String("config"), c.Bool("force"))
		},
	}
}

// initConfig writes the configuration template and creates the database
func initConfig(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("Configuration already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		cfg, err := config.GetDefaultConfig()
		if err != nil {
			return err
		}
		if err := cfg.SaveTemplateConfig(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Event database ready at %s\n", cfg.DatabasePath)
	return nil
}
