package tex2html

import (
	"log/slog"
	"time"

	"github.com/alnah/go-tex2html/internal/pipeline"
)

// Math rendering methods.
const (
	MathMathML  = pipeline.MathMathML
	MathKaTeX   = pipeline.MathKaTeX
	MathMathJax = pipeline.MathMathJax
	MathPlain   = pipeline.MathPlain
)

const defaultTimeout = 30 * time.Second

// Engine turns a complete LaTeX document into an HTML fragment.
// The default engine is pandoc.
type Engine = pipeline.Engine

// Input is one LaTeX source to render.
type Input struct {
	Source string // LaTeX text, with or without a preamble

	// Debug keeps the normalized text and table payloads in the result.
	Debug bool
}

// Result is the output of one render pass.
type Result struct {
	// HTML is the final fragment. It is trusted markup and is not sanitized.
	HTML string

	// Set only when Input.Debug is true.
	Normalized string
	Tables     []Table
}

// Table is a tabular environment lifted out of the source, shown in debug
// output.
type Table struct {
	ID      string
	ColSpec string
	Raw     string
}

// PageMeta describes the page a fragment is mounted in.
type PageMeta struct {
	Title string
	Lang  string

	// Stylesheet is the href of the theme stylesheet. Empty inlines the
	// theme CSS instead, which standalone files and PDF export need.
	Stylesheet string
}

// IndexEntry is one post in a listing page.
type IndexEntry struct {
	Href    string
	Title   string
	Date    string
	Excerpt string
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds the settings collected from options.
type converterConfig struct {
	pandoc       string
	math         string
	extraArgs    []string
	timeout      time.Duration
	allowEnvs    []string
	dateFormat   string
	assetPath    string
	siteDir      string
	logger       *slog.Logger
	now          func() time.Time
	engine       Engine
	loader       *pipeline.EngineLoader
	runner       pipeline.CommandRunner
	pdfConverter pdfConverter
}

// WithEngine replaces pandoc with engine. Mostly useful in tests.
func WithEngine(engine Engine) Option {
	return func(c *Converter) {
		c.cfg.engine = engine
	}
}

// WithPandocPath sets the pandoc executable name or path.
func WithPandocPath(path string) Option {
	return func(c *Converter) {
		c.cfg.pandoc = path
	}
}

// WithMathMethod selects how pandoc renders math: mathml, katex, mathjax
// or plain.
func WithMathMethod(method string) Option {
	return func(c *Converter) {
		c.cfg.math = method
	}
}

// WithExtraArgs appends arguments to every pandoc invocation.
func WithExtraArgs(args ...string) Option {
	return func(c *Converter) {
		c.cfg.extraArgs = append(c.cfg.extraArgs, args...)
	}
}

// WithTimeout bounds each pandoc invocation and PDF page load.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.cfg.timeout = d
		}
	}
}

// WithAllowEnvironments keeps extra environments that would otherwise be
// deleted during normalization.
func WithAllowEnvironments(names ...string) Option {
	return func(c *Converter) {
		c.cfg.allowEnvs = append(c.cfg.allowEnvs, names...)
	}
}

// WithDateFormat sets how \today is rendered inside \date: a preset
// (iso, european, us, long) or a custom format such as "DD/MM/YYYY".
func WithDateFormat(format string) Option {
	return func(c *Converter) {
		c.cfg.dateFormat = format
	}
}

// WithAssetPath loads the stylesheet and templates from a directory,
// falling back to the embedded ones for missing files.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}

// WithSiteDir sets the directory site-rooted image paths resolve against
// when exporting PDFs.
func WithSiteDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.siteDir = dir
	}
}

// WithLogger sets the logger for table fallbacks and render timings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.cfg.logger = logger
	}
}

// withClock overrides the clock used for \today.
func withClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.cfg.now = now
	}
}

// withLoader shares an engine loader between converters of a pool.
func withLoader(loader *pipeline.EngineLoader) Option {
	return func(c *Converter) {
		c.cfg.loader = loader
	}
}

// withRunner replaces process execution for pandoc.
func withRunner(runner pipeline.CommandRunner) Option {
	return func(c *Converter) {
		c.cfg.runner = runner
	}
}

// withPDFConverter replaces the headless browser.
func withPDFConverter(p pdfConverter) Option {
	return func(c *Converter) {
		c.cfg.pdfConverter = p
	}
}
