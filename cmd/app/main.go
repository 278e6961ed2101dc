package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	"github.com/starford/folio/internal/auth"
	pkgconfig "github.com/starford/folio/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func hashPassword(_ context.Context, cmd *cli.Command) error {
	password := cmd.Args().First()
	if password == "" {
		return fmt.Errorf("usage: folio hash-password <password>")
	}
	hash, err := auth.HashPassword(password, int(cmd.Int("cost")))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, hash)
	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "folio",
		Usage:   "Portfolio content store with a JSON catalog API, local and remote persistence, and image uploads",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only catalog tools over MCP on stdio",
				Action: serveMCP,
			},
			{
				Name:      "hash-password",
				Usage:     "Print the bcrypt hash of an admin password for auth.password_hash",
				ArgsUsage: "<password>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "cost",
						Usage: "bcrypt cost",
						Value: 12,
					},
				},
				Action: hashPassword,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
