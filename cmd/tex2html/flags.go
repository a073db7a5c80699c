package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	quiet     bool
	verbose   bool
	logFormat string
}

// engineFlags override the render section of the config.
type engineFlags struct {
	pandoc     string
	math       string
	timeout    string
	dateFormat string
	assetPath  string
	allowEnvs  []string
	extraArgs  []string
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common commonFlags
	engine engineFlags
	posts  string
	output string
	title  string
	page   bool
	pdf    bool
	debug  bool
}

// buildFlags holds flags for the build command.
type buildFlags struct {
	common  commonFlags
	engine  engineFlags
	posts   string
	output  string
	siteDir string
	workers int
	pdf     bool
	changed map[string]bool
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common    commonFlags
	engine    engineFlags
	posts     string
	addr      string
	cacheSize int
	changed   map[string]bool
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and per-post timing")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
}

func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.pandoc, "pandoc", "", "pandoc binary name or path")
	fs.StringVar(&f.math, "math", "", "math rendering: mathml, katex, mathjax, plain")
	fs.StringVar(&f.timeout, "timeout", "", "per-document render timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.dateFormat, "date-format", "", "format for \\today (preset or tokens)")
	fs.StringVar(&f.assetPath, "assets", "", "directory overriding the stylesheet and templates")
	fs.StringSliceVar(&f.allowEnvs, "allow-env", nil, "extra environments kept during normalization")
	fs.StringArrayVar(&f.extraArgs, "pandoc-arg", nil, "extra argument passed to pandoc (repeatable)")
}

// newFlagSet returns a silent FlagSet; parse errors are reported by run.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

// parseError wraps pflag errors as usage errors. flag.ErrHelp passes through.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

func changedFlags(fs *flag.FlagSet) map[string]bool {
	changed := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { changed[f.Name] = true })
	return changed
}

func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	fs.StringVar(&f.posts, "posts", "", "posts directory, for slug arguments")
	fs.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	fs.StringVar(&f.title, "title", "", "page title (default: from \\title)")
	fs.BoolVar(&f.page, "page", false, "wrap the fragment in a standalone page")
	fs.BoolVar(&f.pdf, "pdf", false, "export to PDF (requires --output)")
	fs.BoolVar(&f.debug, "debug", false, "include the normalized source and raw tables")

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	if fs.NArg() > 1 {
		return nil, nil, fmt.Errorf("%w: render takes one input, got %d", ErrUsage, fs.NArg())
	}
	if f.pdf && f.output == "" {
		return nil, nil, fmt.Errorf("%w: --pdf requires --output", ErrUsage)
	}
	return f, fs.Args(), nil
}

func parseBuildFlags(args []string) (*buildFlags, error) {
	f := &buildFlags{}
	fs := newFlagSet("build")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	fs.StringVar(&f.posts, "posts", "", "posts directory")
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVar(&f.siteDir, "site-dir", "", "directory site-rooted images resolve against for PDF export")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.pdf, "pdf", false, "also export every post to PDF")

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if f.workers < 0 {
		return nil, fmt.Errorf("%w: --workers must be >= 0, got %d", ErrUsage, f.workers)
	}
	f.changed = changedFlags(fs)
	return f, nil
}

func parseServeFlags(args []string) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	fs.StringVar(&f.posts, "posts", "", "posts directory")
	fs.StringVar(&f.addr, "addr", "", "listen address (default :8080)")
	fs.IntVar(&f.cacheSize, "cache-size", 0, "rendered posts kept in memory (0 disables)")

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if f.cacheSize < 0 {
		return nil, fmt.Errorf("%w: --cache-size must be >= 0, got %d", ErrUsage, f.cacheSize)
	}
	f.changed = changedFlags(fs)
	return f, nil
}
