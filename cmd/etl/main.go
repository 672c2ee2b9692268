// Package main provides the etl command-line tool for exporting a scholar
// dataset to a single JSON file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ulama/internal/config"
	"ulama/internal/dataset"
	"ulama/internal/formatter"
	"ulama/internal/logger"
	"ulama/internal/pipeline"
)

// defaultConfigPath is read when -config is not given and the file exists.
const defaultConfigPath = "configs/etl.yaml"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

type options struct {
	dataset    string
	out        string
	split      string
	subset     string
	configFile string
	preview    int
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.dataset, "dataset", "", "Hub dataset identifier (owner/name) or local file or directory")
	fs.StringVar(&opts.out, "out", "", "Output JSON file path (parent directories are created)")
	fs.StringVar(&opts.split, "split", "", "Load only this split (default: all splits)")
	fs.StringVar(&opts.subset, "subset", "", "Hub subset/config name (overrides config)")
	fs.StringVar(&opts.configFile, "config", "", "Path to YAML configuration file")
	fs.IntVar(&opts.preview, "preview", -1, "Print the first N records as a table (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: etl -dataset <id|path> -out <file.json> [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		fs.Usage()

		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if opts.dataset == "" || opts.out == "" {
		fs.Usage()

		return nil, errors.New("-dataset and -out are required")
	}

	return opts, nil
}

// loadConfig reads the config file, if any, and applies flag overrides on
// top.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()

	configPath := opts.configFile
	if configPath == "" {
		// Try default location
		if _, err := os.Stat(defaultConfigPath); err == nil {
			configPath = defaultConfigPath
		}
	}

	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if opts.subset != "" {
		cfg.Hub.Subset = opts.subset
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if opts.preview >= 0 {
		cfg.Preview.Rows = opts.preview
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		fmt.Fprintf(stderr, "❌ %v\n", err)

		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)

		return exitFailure
	}

	log, runID := logger.New(stderr, cfg.Logging.Level).WithRun()
	log.Debug("configuration loaded", "config", cfg.String(), "run_id", runID)

	loaderOpts := dataset.OptionsFromConfig(cfg, log)
	open := func(ref string) (dataset.Loader, error) {
		return dataset.Open(ref, loaderOpts)
	}

	p := pipeline.New(open, log)

	report, err := p.Run(ctx, pipeline.Request{
		Dataset: opts.dataset,
		Split:   opts.split,
		Out:     opts.out,
	})
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		if dataset.IsNotFound(err) {
			fmt.Fprintln(stderr, "   Check the dataset id, -subset and -split; private hub datasets need hub.token in the config file.")
		}

		return exitFailure
	}

	if cfg.Preview.Rows > 0 {
		fmt.Fprint(stdout, formatter.PreviewTable(report.Records, cfg.Preview.Rows, cfg.Preview.MaxWidth))
	}

	fmt.Fprintf(stdout, "✅ Saved %d records to %s\n", report.Rows, report.Out)

	return exitOK
}
