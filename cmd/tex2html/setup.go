package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/hints"
	"github.com/alnah/go-tex2html/internal/posts"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrReadSource  = errors.New("failed to read source")
	ErrWriteOutput = errors.New("failed to write output")
	ErrBuildFailed = errors.New("build finished with errors")
)

// loadConfig returns the file named by --config, or a copy of the
// environment's config when the flag is absent.
func loadConfig(f commonFlags, env *Environment) (*config.Config, error) {
	if f.config != "" {
		return config.LoadConfig(f.config)
	}
	if env.Config == nil {
		return config.DefaultConfig(), nil
	}
	cfg := *env.Config
	return &cfg, nil
}

// applyEngineFlags overrides the render section with explicit flags and
// revalidates. Flags always win over the file.
func applyEngineFlags(cfg *config.Config, f engineFlags, common commonFlags) error {
	if f.pandoc != "" {
		cfg.Render.Pandoc = f.pandoc
	}
	if f.math != "" {
		cfg.Render.Math = f.math
	}
	if f.timeout != "" {
		cfg.Render.Timeout = f.timeout
	}
	if f.dateFormat != "" {
		cfg.Render.DateFormat = f.dateFormat
	}
	if f.assetPath != "" {
		cfg.Assets.BasePath = f.assetPath
	}
	if len(f.allowEnvs) > 0 {
		cfg.Render.AllowEnvironments = append(cfg.Render.AllowEnvironments, f.allowEnvs...)
	}
	if len(f.extraArgs) > 0 {
		cfg.Render.ExtraArgs = append(cfg.Render.ExtraArgs, f.extraArgs...)
	}
	if common.logFormat != "" {
		cfg.Log.Format = common.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w (after applying flags)", err)
	}
	return nil
}

// newLogger builds the slog handler selected by log.format and log.level.
// --verbose forces debug, --quiet keeps errors only.
func newLogger(w io.Writer, cfg *config.Config, f commonFlags) *slog.Logger {
	level := cfg.SlogLevel()
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// converterOptions maps the effective config onto converter options.
func converterOptions(cfg *config.Config, env *Environment, logger *slog.Logger) []tex2html.Option {
	opts := []tex2html.Option{
		tex2html.WithPandocPath(cfg.Render.Pandoc),
		tex2html.WithMathMethod(strings.ToLower(cfg.Render.Math)),
		tex2html.WithExtraArgs(cfg.Render.ExtraArgs...),
		tex2html.WithTimeout(cfg.Timeout()),
		tex2html.WithAllowEnvironments(cfg.Render.AllowEnvironments...),
		tex2html.WithDateFormat(cfg.Render.DateFormat),
		tex2html.WithAssetPath(cfg.Assets.BasePath),
		tex2html.WithSiteDir(cfg.Site.BaseDir),
		tex2html.WithLogger(logger),
	}
	if env.Engine != nil {
		opts = append(opts, tex2html.WithEngine(env.Engine))
	}
	return opts
}

// errorMessage formats err with an actionable hint when one applies.
func errorMessage(err error, cfg *config.Config) string {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg += hints.ForTimeout()
	case errors.Is(err, tex2html.ErrRenderUnavailable):
		msg += hints.ForPandocMissing()
	case errors.Is(err, tex2html.ErrParseFailure):
		msg += hints.ForParseFailure()
	case errors.Is(err, tex2html.ErrBrowserConnect):
		msg += hints.ForBrowserConnect()
	case errors.Is(err, config.ErrConfigNotFound):
		msg += hints.ForConfigNotFound(config.SearchPaths("tex2html"))
	case errors.Is(err, ErrWriteOutput):
		msg += hints.ForOutputDirectory()
	case errors.Is(err, posts.ErrPostNotFound) && cfg != nil:
		slugs, _ := posts.NewStore(cfg.Posts.Dir).Slugs()
		msg += hints.ForPostNotFound(slugs)
	}
	return msg
}
