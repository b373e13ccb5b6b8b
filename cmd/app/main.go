package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/physiodesk/internal"
	pkgconfig "github.com/starford/physiodesk/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func show(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Show(ctx, os.Stdout, opts...)
}

func reset(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("reset removes every patient, appointment and exercise plan; pass --yes to confirm")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Reset(ctx, opts...)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "physiodesk",
		Usage:   "Patient, appointment and exercise plan records for a physiotherapy clinic",
		Version: version,
		Action:  serve,
		Flags:   []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the web page and JSON API",
				Action: serve,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the clinic tools over MCP on stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "show",
				Usage:  "Print counts and every collection",
				Action: show,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "reset",
				Usage:  "Delete every stored record",
				Action: reset,
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
