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
	"github.com/poiesic/logsift"
	"github.com/poiesic/logsift/classify"
	"github.com/poiesic/logsift/config"
	"github.com/urfave/cli/v2"
)

func main() {
	// .env must be loaded before flags are parsed so EnvVars see it.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "logsift",
		Usage: "Prioritized log ingestion and classification",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOGSIFT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"LOGSIFT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB results directory (in memory when empty)",
				EnvVars: []string{"LOGSIFT_DB"},
			},
			&cli.StringFlag{
				Name:    "classifier-host",
				Usage:   "Classifier service host URL",
				EnvVars: []string{"LOGSIFT_CLASSIFIER_HOST"},
			},
			&cli.StringFlag{
				Name:    "classifier-model",
				Usage:   "Classifier model name",
				EnvVars: []string{"LOGSIFT_CLASSIFIER_MODEL"},
			},
			&cli.StringFlag{
				Name:    "classifier-token",
				Usage:   "Classifier API key",
				EnvVars: []string{"LOGSIFT_CLASSIFIER_TOKEN", "OPENAI_API_KEY"},
			},
			&cli.IntFlag{
				Name:    "max-concurrent",
				Usage:   "Maximum number of jobs processed at once",
				EnvVars: []string{"LOGSIFT_MAX_CONCURRENT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			ingestCommand(),
			streamCommand(),
			serveCommand(),
			resultsCommand(),
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

// loadConfig reads --config if given and lets global flags override it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
		cfg.Storage.InMemory = cfg.Storage.Path == ""
	}
	if c.IsSet("classifier-host") {
		cfg.Classifier.Host = c.String("classifier-host")
	}
	if c.IsSet("classifier-model") {
		cfg.Classifier.Model = c.String("classifier-model")
	}
	if c.IsSet("classifier-token") {
		cfg.Classifier.Token = c.String("classifier-token")
	}
	if c.IsSet("max-concurrent") {
		cfg.Engine.MaxConcurrent = c.Int("max-concurrent")
	}
	return cfg, nil
}

// openService builds the service described by the configuration and flags.
func openService(c *cli.Context) (*logsift.Service, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.Storage.Path
	if cfg.Storage.InMemory {
		path = ""
	}
	svc, err := logsift.Open(path,
		logsift.WithLogger(slog.Default()),
		logsift.WithClassifierConfig(classify.NewConfig(cfg.ClassifierOptions()...)),
		logsift.WithEngineOptions(cfg.EngineOptions()...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, cfg, nil
}
