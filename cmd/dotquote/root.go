package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/benithors/dotquote/internal/config"
	"github.com/benithors/dotquote/internal/engine"
	"github.com/benithors/dotquote/internal/logger"
)

type options struct {
	Version string

	// Global flags.
	ConfigPath  string
	VersionFlag bool
	Format      string
	JSON        bool
	NDJSON      bool
	Plain       bool
	Timeout     time.Duration
	Concurrency int
	Strict      bool
	Quiet       bool
	Verbose     bool
	Primary     string
	Direct      string

	// Derived runtime state.
	cfg       *config.Config
	engine    *engine.Engine
	outFormat outputFormat
}

func newRootCmd(ver string) *cobra.Command {
	o := &options{Version: ver}

	root := &cobra.Command{
		Use:           "dotquote",
		Short:         "Check domain availability and compare registration prices across registrars",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(usageErr)

	pf := root.PersistentFlags()
	pf.StringVarP(&o.ConfigPath, "config", "c", "dotquote.yaml", "Config file (YAML); environment variables override it")
	pf.BoolVar(&o.VersionFlag, "version", false, "Print version and exit")
	pf.StringVar(&o.Format, "format", "auto", "Output format: auto|table|ndjson|json|plain")
	pf.BoolVar(&o.JSON, "json", false, "Alias for --format json (single JSON array)")
	pf.BoolVar(&o.NDJSON, "ndjson", false, "Alias for --format ndjson (one JSON object per line)")
	pf.BoolVar(&o.NDJSON, "jsonl", false, "Alias for --format ndjson (one JSON object per line)")
	pf.BoolVar(&o.Plain, "plain", false, "Alias for --format plain (stable tab-separated)")
	pf.DurationVar(&o.Timeout, "timeout", 0, "Per-request timeout, clamped to 10s-30s (default from config)")
	pf.IntVar(&o.Concurrency, "concurrency", 8, "Max concurrent direct price lookups per provider")
	pf.BoolVar(&o.Strict, "strict", false, "Exit non-zero if any result is an error")
	pf.BoolVarP(&o.Quiet, "quiet", "q", false, "Only log warnings and errors to stderr")
	pf.BoolVarP(&o.Verbose, "verbose", "v", false, "Debug logging to stderr")
	pf.StringVar(&o.Primary, "primary", "", "Availability provider: auto|godaddy|rdap (default from config)")
	pf.StringVar(&o.Direct, "direct", "", "Per-domain price lookups: missing|never|always (default from config)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if o.VersionFlag {
			fmt.Fprintf(os.Stdout, "dotquote %s (%s/%s)\n", o.Version, runtime.GOOS, runtime.GOARCH)
			return errExit0
		}

		formatStr := strings.ToLower(strings.TrimSpace(o.Format))
		if formatStr == "" {
			formatStr = "auto"
		}

		aliases := 0
		for _, set := range []bool{o.JSON, o.NDJSON, o.Plain} {
			if set {
				aliases++
			}
		}
		if aliases > 1 {
			return usageErr(cmd, fmt.Errorf("flags are mutually exclusive: --json, --ndjson, --plain"))
		}
		if formatStr != "auto" && aliases == 1 {
			return usageErr(cmd, fmt.Errorf("do not combine --format with --json/--ndjson/--plain"))
		}
		switch {
		case o.JSON:
			formatStr = "json"
		case o.NDJSON:
			formatStr = "ndjson"
		case o.Plain:
			formatStr = "plain"
		}
		o.outFormat = resolveFormat(formatStr, os.Stdout)

		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return usageErr(cmd, err)
		}
		if o.Timeout > 0 {
			cfg.RequestTimeout = o.Timeout
		}
		if o.Primary != "" {
			cfg.PrimaryProvider = o.Primary
		}
		if o.Direct != "" {
			cfg.DirectLookups = o.Direct
		}
		o.cfg = cfg

		level := logger.ParseLevel(cfg.LogLevel)
		switch {
		case o.Verbose:
			level = zapcore.DebugLevel
		case o.Quiet:
			level = zapcore.WarnLevel
		}
		if err := logger.Setup(cfg.Environment, level); err != nil {
			return failure(cmd, fmt.Errorf("failed to set up logging: %w", err))
		}

		eng, err := buildEngine(cfg, o.Concurrency, o.Version)
		if err != nil {
			return usageErr(cmd, err)
		}
		o.engine = eng
		return nil
	}

	root.AddCommand(newCheckCmd(o))
	root.AddCommand(newMoreCmd(o))
	root.AddCommand(newPricingCmd(o))
	root.AddCommand(newServeCmd(o))

	return root
}
