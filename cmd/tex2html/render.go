package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/fileutil"
	"github.com/alnah/go-tex2html/internal/posts"
)

// runRender converts one document: a .tex file, a post slug, or stdin
// ("-" or no argument). The fragment goes to stdout unless --output is set.
func runRender(ctx context.Context, args []string, env *Environment) (*config.Config, error) {
	f, positional, err := parseRenderFlags(args)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(f.common, env)
	if err != nil {
		return nil, err
	}
	if f.posts != "" {
		cfg.Posts.Dir = f.posts
	}
	if err := applyEngineFlags(cfg, f.engine, f.common); err != nil {
		return cfg, err
	}
	logger := newLogger(env.Stderr, cfg, f.common)

	src, err := readSource(positional, cfg, env)
	if err != nil {
		return cfg, err
	}

	conv, err := tex2html.NewConverter(converterOptions(cfg, env, logger)...)
	if err != nil {
		return cfg, err
	}
	defer func() { _ = conv.Close() }()

	start := env.Now()
	res, err := conv.Convert(ctx, tex2html.Input{Source: src.Text, Debug: f.debug})
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", src.File, err)
	}
	logger.Debug("rendered", "file", src.File, "duration", env.Now().Sub(start))

	title := f.title
	if title == "" {
		title = src.Title
	}
	// Standalone outputs inline the stylesheet.
	meta := tex2html.PageMeta{Title: title, Lang: cfg.Site.Lang}

	var out []byte
	switch {
	case f.pdf:
		if out, err = conv.ExportPDF(ctx, res, meta); err != nil {
			return cfg, err
		}
	case f.page:
		page, err := conv.RenderPage(ctx, res, meta)
		if err != nil {
			return cfg, err
		}
		out = []byte(page)
	default:
		out = []byte(res.HTML + "\n")
		if f.debug {
			printDebug(env.Stderr, res)
		}
	}

	return cfg, writeOutput(f.output, out, env, logger)
}

// readSource resolves the render input. An existing path is read as a
// file; anything else is looked up as a post slug.
func readSource(positional []string, cfg *config.Config, env *Environment) (*posts.Source, error) {
	if len(positional) == 0 || positional[0] == "-" {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: stdin: %v", ErrReadSource, err)
		}
		text := string(data)
		return &posts.Source{Post: posts.Describe("stdin", text), Text: text}, nil
	}

	arg := positional[0]
	if fileutil.FileExists(arg) {
		data, err := os.ReadFile(arg) // #nosec G304 -- path is user-provided
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadSource, err)
		}
		text := string(data)
		return &posts.Source{Post: posts.Describe(filepath.Base(arg), text), Path: arg, Text: text}, nil
	}
	if strings.ContainsAny(arg, `/\`) {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadSource, arg, os.ErrNotExist)
	}
	return posts.NewStore(cfg.Posts.Dir).Read(arg)
}

func writeOutput(path string, data []byte, env *Environment, logger *slog.Logger) error {
	if path == "" {
		if _, err := env.Stdout.Write(data); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	if err := fileutil.WriteFile(path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	logger.Info("wrote output", "path", path, "bytes", len(data))
	return nil
}

// printDebug shows what pandoc saw, for fragments written to stdout.
func printDebug(w io.Writer, res *tex2html.Result) {
	fmt.Fprintln(w, "--- normalized source ---")
	fmt.Fprintln(w, res.Normalized)
	for _, t := range res.Tables {
		fmt.Fprintf(w, "--- table %s {%s} ---\n", strings.Trim(t.ID, "\uE000\uE001"), t.ColSpec)
		fmt.Fprintln(w, t.Raw)
	}
}
