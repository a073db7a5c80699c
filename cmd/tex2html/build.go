package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/posts"
	"github.com/alnah/go-tex2html/internal/site"
)

// runBuild renders the whole posts directory into the output directory.
// Failed posts are reported and skipped; the command then exits non-zero.
func runBuild(ctx context.Context, args []string, env *Environment) (*config.Config, error) {
	f, err := parseBuildFlags(args)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(f.common, env)
	if err != nil {
		return nil, err
	}
	mergeBuildFlags(cfg, f)
	if err := applyEngineFlags(cfg, f.engine, f.common); err != nil {
		return cfg, err
	}
	logger := newLogger(env.Stderr, cfg, f.common)

	// Fail fast on options the pool would only reject per post.
	probe, err := tex2html.NewConverter(converterOptions(cfg, env, logger)...)
	if err != nil {
		return cfg, err
	}
	_ = probe.Close()

	size := tex2html.ResolvePoolSize(cfg.Render.Workers)
	logger.Debug("converter pool", "size", size)
	pool := tex2html.NewConverterPool(size, converterOptions(cfg, env, logger)...)
	defer func() { _ = pool.Close() }()

	builder := &site.Builder{
		Store:     posts.NewStore(cfg.Posts.Dir),
		Pool:      site.ConverterPool{ConverterPool: pool},
		OutputDir: cfg.Output.Dir,
		Title:     cfg.Site.Title,
		Lang:      cfg.Site.Lang,
		PDF:       cfg.Output.PDF,
		Logger:    logger,
	}

	start := env.Now()
	report, err := builder.Build(ctx)
	if err != nil {
		return cfg, err
	}
	printReport(report, f.common, cfg, env.Now().Sub(start), env)

	if n := report.Failed(); n > 0 {
		return cfg, fmt.Errorf("%w: %d of %d posts failed: %w", ErrBuildFailed, n, len(report.Results), firstError(report))
	}
	return cfg, nil
}

func mergeBuildFlags(cfg *config.Config, f *buildFlags) {
	if f.posts != "" {
		cfg.Posts.Dir = f.posts
	}
	if f.output != "" {
		cfg.Output.Dir = f.output
	}
	if f.siteDir != "" {
		cfg.Site.BaseDir = f.siteDir
	}
	if f.changed["workers"] {
		cfg.Render.Workers = f.workers
	}
	if f.changed["pdf"] {
		cfg.Output.PDF = f.pdf
	}
}

// printReport writes per-post failures, per-post timings in verbose mode
// and a summary line unless quiet.
func printReport(report *site.Report, f commonFlags, cfg *config.Config, elapsed time.Duration, env *Environment) {
	for _, r := range report.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(env.Stderr, "FAIL %s: %s\n", r.File, errorMessage(r.Err, cfg))
		case f.verbose:
			fmt.Fprintf(env.Stdout, "ok   %s -> %s (%s)\n", r.File, r.Output, r.Duration.Round(time.Millisecond))
		}
	}
	if f.quiet {
		return
	}
	printSummary(env.Stdout, len(report.Entries), report.Failed(), cfg.Output.Dir, elapsed)
}

func printSummary(w io.Writer, built, failed int, dir string, elapsed time.Duration) {
	if failed > 0 {
		fmt.Fprintf(w, "Built %d posts into %s, %d failed (%s)\n", built, dir, failed, elapsed.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "Built %d posts into %s (%s)\n", built, dir, elapsed.Round(time.Millisecond))
}

func firstError(report *site.Report) error {
	for _, r := range report.Results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
