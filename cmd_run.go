package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sirkon/pcg/internal/config"
	"github.com/sirkon/pcg/internal/dump"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/fixture"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

type runOptions struct {
	cfg      *config.Config
	output   OutputFormat
	check    bool
	coupling bool
	known    *knownDivergingFuncs
	defaults []string
	logger   *slog.Logger
	progress *progress
}

func runAnalyze(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		mode       validity.Mode
		dumpFormat config.DumpFormat
		level      slog.Level
		output     OutputFormat
	)
	configPath := fs.String("config", "", "configuration file")
	fs.TextVar(&mode, "validity", validity.ModeWarn, "consistency checks mode: off, warn or fatal")
	maxIterations := fs.Int("max-iterations", engine.DefaultMaxIterations, "block visits allowed before giving up")
	record := fs.Bool("record", false, "record block entry states of every fixpoint iteration")
	dumpDir := fs.String("dump", "", "directory to dump results into, one subdirectory per body")
	fs.TextVar(&dumpFormat, "dump-format", ptr(config.DumpFormatJSON), "dump format: json, sqlite or both")
	fs.TextVar(&level, "log-level", slog.LevelInfo, "log level")
	fs.TextVar(&output, "output", OutputFormatText, "results output format: text or json")
	check := fs.Bool("check", false, "compare results with fixture expectations instead of printing them")
	coupling := fs.Bool("coupling", false, "print coupling graphs at returning blocks")
	verbose := fs.Bool("v", false, "verbose progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: fixture files expected", errUsage)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "validity":
			cfg.Validity = mode
		case "max-iterations":
			cfg.MaxIterations = *maxIterations
		case "record":
			cfg.Recording = *record
		case "dump":
			cfg.Dump.Dir = *dumpDir
		case "dump-format":
			cfg.Dump.Format = dumpFormat
		case "log-level":
			cfg.LogLevel = config.LogLevel{Level: level}
		}
	})
	if cfg.MaxIterations <= 0 {
		return fmt.Errorf("%w: max-iterations must be positive", errUsage)
	}

	opts := &runOptions{
		cfg:      cfg,
		output:   output,
		check:    *check,
		coupling: *coupling,
		known:    newKnownDivergingFuncs(cfg.Diverging),
		defaults: newKnownDivergingFuncs(nil).names(),
		logger:   newLogger(stderr, cfg.LogLevel.Level),
		progress: newProgress(stderr, *verbose),
	}

	var errs []error
	for _, path := range fs.Args() {
		if err := opts.analyzeFile(ctx, path, stdout); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (o *runOptions) analyzeFile(ctx context.Context, path string, stdout io.Writer) error {
	fx, err := fixture.Load(path)
	if err != nil {
		return err
	}

	name := fx.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	o.logDiverging(name, fx.Body)

	var (
		rec    *dump.Recorder
		engRec engine.Recorder
	)
	if o.cfg.Recording {
		rec = dump.NewRecorder()
		engRec = rec
	}

	ecfg := o.cfg.Engine(o.logger.With("body", name), o.defaults, engRec)
	res, err := engine.New(ecfg).Analyze(ctx, fx.Body, fx.Facts)

	if o.check {
		if mismatches := checkExpect(&fx.Expect, res, err); len(mismatches) > 0 {
			return fmt.Errorf("%s: %w:\n\t%s", path, errMismatch, strings.Join(mismatches, "\n\t"))
		}
		o.progress.log("%s: ok", name)
		if err != nil {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if !o.check {
		if err := writeResults(stdout, o.output, res, rec); err != nil {
			return err
		}
	}

	if o.coupling {
		if err := writeCoupling(stdout, res, fx.Facts); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if o.cfg.Dump.Dir != "" {
		dir := filepath.Join(o.cfg.Dump.Dir, name)
		if err := writeDump(dir, o.cfg.Dump.Format, res, rec); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		o.progress.detail("%s: dumped into %s", name, dir)
	}

	o.progress.detail(
		"%s: %d blocks, %d visits, %d reports",
		name, len(res.Blocks()), res.Iterations(), len(res.Reports()),
	)

	return nil
}

func (o *runOptions) logDiverging(name string, body *mir.Body) {
	for i, b := range body.Blocks {
		if b.Terminator.Kind != mir.TerminatorCall {
			continue
		}

		if kind := o.known.kindOf(b.Terminator.Call.Func); kind != DivergeKindInvalid {
			o.progress.detail("%s: bb%d calls %s function %s", name, i, kind, b.Terminator.Call.Func)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
