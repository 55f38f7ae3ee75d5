// Copyright 2026 Poiesic Systems
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/photoflow/config"
	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/gateway"
	"github.com/poiesic/photoflow/geo"
	"github.com/poiesic/photoflow/inference/openai"
	"github.com/poiesic/photoflow/ledger"
	"github.com/poiesic/photoflow/pipeline"
	"github.com/poiesic/photoflow/resolve"
	"github.com/poiesic/photoflow/store/fs"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "photoflow",
		Usage: "Image pipeline: fetch, analyze, and publish photo metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to TOML configuration file",
				Required: true,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Record new origin items in the ledger",
				Action: stageCommand((*pipeline.Pipeline).Fetch),
			},
			{
				Name:   "analyze",
				Usage:  "Analyze fetched items and store their resolved records",
				Action: stageCommand((*pipeline.Pipeline).Resolve),
			},
			{
				Name:   "publish",
				Usage:  "Upload resolved items under generated target names",
				Action: stageCommand((*pipeline.Pipeline).Publish),
			},
			{
				Name:   "run",
				Usage:  "Run fetch, analyze, and publish in sequence",
				Action: runCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show ledger stage counts and gateway metrics",
				Action: statsCommand,
			},
			{
				Name:  "purge-ledger",
				Usage: "Remove all ledger entries (items will be reprocessed)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the purge",
					},
				},
				Action: purgeCommand,
			},
		},
	}
}

// buildPipeline wires every component from the config file.
func buildPipeline(c *cli.Context) (*pipeline.Pipeline, *ledger.Ledger, *gateway.Gateway, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}

	schema, err := core.LoadSchema(cfg.SchemaPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading schema: %w", err)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening ledger: %w", err)
	}

	infCfg := cfg.InferenceConfig()
	backend, err := openai.NewBackend(infCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating inference backend: %w", err)
	}

	gw, err := gateway.New(backend, infCfg.Params(), cfg.GatewayConfig(),
		gateway.WithMetrics(gateway.NewMetrics(cfg.Gateway.MetricsPath)))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating gateway: %w", err)
	}

	table, err := cfg.PriorityTable()
	if err != nil {
		return nil, nil, nil, err
	}

	resolverOpts := []resolve.Option{
		resolve.WithPriorities(table),
		resolve.WithStrictChoices(cfg.StrictChoices),
	}
	if cfg.Geocoder.Enabled {
		var geoOpts []geo.NominatimOption
		if cfg.Geocoder.BaseURL != "" {
			geoOpts = append(geoOpts, geo.WithBaseURL(cfg.Geocoder.BaseURL))
		}
		if cfg.Geocoder.UserAgent != "" {
			geoOpts = append(geoOpts, geo.WithUserAgent(cfg.Geocoder.UserAgent))
		}
		if cfg.Geocoder.Language != "" {
			geoOpts = append(geoOpts, geo.WithLanguage(cfg.Geocoder.Language))
		}
		resolverOpts = append(resolverOpts, resolve.WithGeocoder(geo.NewNominatim(geoOpts...)))
	}

	resolver, err := resolve.New(resolverOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating resolver: %w", err)
	}

	p, err := pipeline.New(
		fs.NewOrigin(cfg.OriginDir),
		fs.NewPublisher(cfg.PublishDir),
		led, gw, resolver, schema,
		pipeline.WithPoolSize(cfg.PoolSize),
		pipeline.WithFilenameMask(cfg.FilenameMask),
		pipeline.WithDeleteAfterPublish(cfg.DeleteAfterPublish),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating pipeline: %w", err)
	}
	return p, led, gw, nil
}

// stageCommand adapts a single pipeline stage to a CLI action.
func stageCommand(stage func(*pipeline.Pipeline, context.Context) (*pipeline.StageReport, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		p, _, _, err := buildPipeline(c)
		if err != nil {
			return err
		}

		report, err := stage(p, c.Context)
		if report != nil {
			printReport(c.Command.Name, report)
		}
		return err
	}
}

func runCommand(c *cli.Context) error {
	p, _, _, err := buildPipeline(c)
	if err != nil {
		return err
	}

	summary, err := p.Run(c.Context)
	if summary != nil {
		fmt.Fprintf(os.Stderr, "Run %s\n", summary.RunID)
		printReport("fetch", summary.Fetch)
		printReport("analyze", summary.Resolve)
		printReport("publish", summary.Publish)
		for kind, count := range summary.FailureKinds {
			if count > 0 {
				fmt.Fprintf(os.Stderr, "  %s failures: %d\n", kind, count)
			}
		}
	}
	return err
}

func statsCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Ledger: %s (%d items)\n", cfg.LedgerPath, led.Len())
	counts := led.StageCounts()
	for _, stage := range []core.Stage{core.StageFetched, core.StageResolved, core.StagePublished} {
		fmt.Fprintf(os.Stderr, "  %s: %d\n", stage, counts[stage])
	}

	if cfg.Gateway.MetricsPath != "" {
		snap := gateway.NewMetrics(cfg.Gateway.MetricsPath).Snapshot()
		fmt.Fprintf(os.Stderr, "Gateway: %d requests, %d input units, %d output units, %d errors, %d cache hits\n",
			snap.Requests, snap.InputUnits, snap.OutputUnits, snap.Errors, snap.CacheHits)
	}
	return nil
}

func purgeCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("purge-ledger requires --yes; all items will be reprocessed")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}

	n := led.Len()
	if err := led.Purge(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Purged %d ledger entries\n", n)
	return nil
}

func printReport(stage string, report *pipeline.StageReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s: %d processed, %d skipped, %d flagged, %d failed\n",
		stage, report.Processed, report.Skipped, report.Flagged, len(report.Failures))
	for name, err := range report.Failures {
		fmt.Fprintf(os.Stderr, "    %s: %v\n", name, err)
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
