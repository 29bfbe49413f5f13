// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/pinmatch/config"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pinmatch",
		Usage: "Match free-text postal addresses to post offices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "pinmatch.yaml",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory holding the index artifacts",
			},
			&cli.StringFlag{
				Name:  "catalog-dir",
				Usage: "Path to the BadgerDB catalog directory",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Load a post office CSV into the catalog",
				ArgsUsage: "[file.csv]",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all-offices",
						Usage: "Keep non-delivery offices",
					},
				},
			},
			{
				Name:      "match",
				Usage:     "Match an address against the catalog",
				ArgsUsage: "<address text>",
				Action:    matchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return (default from config)",
					},
					&cli.BoolFlag{
						Name:  "enrich",
						Usage: "Attach location codes to results",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the response as JSON",
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Read the catalog from a CSV file instead of the catalog directory",
					},
				},
			},
			{
				Name:      "normalize",
				Usage:     "Show how an address is cleaned before matching",
				ArgsUsage: "<address text>",
				Action:    normalizeCommand,
			},
			{
				Name:   "lookup",
				Usage:  "Find catalog entries by id, pincode, office or district",
				Action: lookupCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Record ID as printed by lookup"},
					&cli.StringFlag{Name: "pincode", Usage: "Exact 6-digit pincode"},
					&cli.StringFlag{Name: "office", Usage: "Office name substring"},
					&cli.StringFlag{Name: "district", Usage: "District name substring"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 50},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect or remove the index cache",
				Subcommands: []*cli.Command{
					{
						Name:   "status",
						Usage:  "Show cached artifacts",
						Action: cacheStatusCommand,
					},
					{
						Name:   "clear",
						Usage:  "Remove cached artifacts",
						Action: cacheClearCommand,
					},
				},
			},
		},
	}
}

// setup loads .env, the config file and flag overrides, then configures logging.
func setup(c *cli.Context) error {
	// A missing .env file is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("catalog-dir") {
		cfg.CatalogDir = c.String("catalog-dir")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg

	return setupLogger(cfg.LogLevel)
}

func setupLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
