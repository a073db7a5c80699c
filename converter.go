package tex2html

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-tex2html/internal/assets"
	"github.com/alnah/go-tex2html/internal/dateutil"
	"github.com/alnah/go-tex2html/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.TeXPreprocessor = (*pipeline.Normalizer)(nil)
	_ pipeline.Engine          = (*pipeline.PandocEngine)(nil)
	_ pipeline.PageRenderer    = (*pipeline.PageTemplate)(nil)
	_ pipeline.CSSInjector     = (*pipeline.CSSInjection)(nil)
	_ pdfConverter             = (*rodConverter)(nil)
	_ pdfRenderer              = (*rodRenderer)(nil)
)

// Converter orchestrates the LaTeX-to-HTML pipeline.
// Create with NewConverter(), use Convert() for conversion, and Close() when done.
// A Converter is safe for concurrent use.
type Converter struct {
	cfg          converterConfig
	logger       *slog.Logger
	preprocessor pipeline.TeXPreprocessor
	loader       *pipeline.EngineLoader
	theme        *assets.Theme
	page         pipeline.PageRenderer
	index        *template.Template
	cssInjector  pipeline.CSSInjector

	pdfMu        sync.Mutex
	pdfConverter pdfConverter
}

// NewConverter creates a Converter with default configuration.
// pandoc is located on first use, not here, so a missing binary surfaces as
// ErrRenderUnavailable from Convert.
// Returns error if an option is invalid or the theme cannot be loaded.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			math:       MathMathML,
			timeout:    defaultTimeout,
			dateFormat: dateutil.DefaultDateFormat,
		},
		cssInjector: &pipeline.CSSInjection{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.cfg.logger
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if !isMathMethod(c.cfg.math) {
		return nil, fmt.Errorf("%w: %q (expected mathml, katex, mathjax or plain)", ErrInvalidMathMethod, c.cfg.math)
	}

	today, err := dateutil.Formatter(c.cfg.dateFormat, c.cfg.now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateFormat, err)
	}
	c.preprocessor = &pipeline.Normalizer{
		AllowEnvironments: c.cfg.allowEnvs,
		Today:             today,
	}

	c.loader = c.newLoader()

	if err := c.loadTheme(); err != nil {
		return nil, err
	}

	c.pdfConverter = c.cfg.pdfConverter
	return c, nil
}

// newLoader picks the engine source: an injected engine, a shared loader,
// or pandoc resolved lazily.
func (c *Converter) newLoader() *pipeline.EngineLoader {
	switch {
	case c.cfg.engine != nil:
		return pipeline.StaticLoader(c.cfg.engine)
	case c.cfg.loader != nil:
		return c.cfg.loader
	}
	pandoc := &pipeline.PandocLoader{
		Runner:  c.cfg.runner,
		Options: c.engineOptions(),
	}
	return pipeline.NewEngineLoader(pandoc.Load)
}

func (c *Converter) engineOptions() pipeline.EngineOptions {
	return pipeline.EngineOptions{
		Binary:    c.cfg.pandoc,
		Math:      c.cfg.math,
		ExtraArgs: c.cfg.extraArgs,
		Timeout:   c.cfg.timeout,
	}
}

func (c *Converter) loadTheme() error {
	var loader assets.AssetLoader = assets.NewEmbeddedLoader()
	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		loader = resolver
	}

	theme, err := assets.LoadTheme(loader)
	if err != nil {
		return err
	}

	page, err := pipeline.NewPageTemplate(theme.Page)
	if err != nil {
		return fmt.Errorf("initializing page template: %w", err)
	}
	index, err := template.New("index").Parse(theme.Index)
	if err != nil {
		return fmt.Errorf("initializing index template: %w", err)
	}

	c.theme = theme
	c.page = page
	c.index = index
	return nil
}

// Convert runs one render pass: normalize, render with the engine, resolve
// tokens. Parse failures are terminal for the whole document; failed tables
// fall back locally and never fail the pass.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if strings.TrimSpace(input.Source) == "" {
		return nil, ErrEmptySource
	}

	start := time.Now()

	normalized, tokens := c.preprocessor.Normalize(ctx, input.Source, &pipeline.CounterIDs{})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	engine, err := c.loader.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	fragment, err := engine.Render(ctx, pipeline.Wrap(normalized))
	if err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}

	resolver := &pipeline.Resolver{Engine: engine, Logger: c.logger}
	out, err := resolver.Resolve(ctx, fragment, tokens)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("rendered latex",
		"tokens", len(tokens),
		"bytes", len(out),
		"duration", time.Since(start))

	res := &Result{HTML: out}
	if input.Debug {
		debug := pipeline.NewDebugData(normalized, tokens)
		res.Normalized = debug.Normalized
		for _, t := range debug.Tables {
			res.Tables = append(res.Tables, Table(t))
		}
	}
	return res, nil
}

// EngineReady reports whether the engine has been acquired.
func (c *Converter) EngineReady() bool {
	return c.loader.Loaded()
}

// Stylesheet returns the theme CSS.
func (c *Converter) Stylesheet() string {
	return c.theme.CSS
}

// RenderPage wraps a result in a complete HTML page.
func (c *Converter) RenderPage(ctx context.Context, res *Result, meta PageMeta) (string, error) {
	data := c.pageData(meta)
	if res != nil {
		data.Content = template.HTML(res.HTML) // #nosec G203 -- fragment produced by the trusted pipeline
		if res.Normalized != "" || len(res.Tables) > 0 {
			data.Debug = toDebugData(res)
		}
	}
	return c.renderPage(ctx, data, meta)
}

// RenderErrorPage renders the error state shown instead of a partially
// rendered document.
func (c *Converter) RenderErrorPage(ctx context.Context, cause error, meta PageMeta) (string, error) {
	data := c.pageData(meta)
	data.Error = "render failed"
	if cause != nil {
		data.Error = cause.Error()
	}
	return c.renderPage(ctx, data, meta)
}

// RenderIndex renders the post listing page.
func (c *Converter) RenderIndex(ctx context.Context, entries []IndexEntry, meta PageMeta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := struct {
		Title      string
		Lang       string
		Stylesheet string
		Posts      []IndexEntry
	}{meta.Title, langOrDefault(meta.Lang), meta.Stylesheet, entries}

	var b strings.Builder
	if err := c.index.Execute(&b, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageRender, err)
	}
	return c.inlineCSS(ctx, b.String(), meta), nil
}

func (c *Converter) pageData(meta PageMeta) *pipeline.PageData {
	return &pipeline.PageData{
		Title:      meta.Title,
		Lang:       langOrDefault(meta.Lang),
		Stylesheet: meta.Stylesheet,
	}
}

func (c *Converter) renderPage(ctx context.Context, data *pipeline.PageData, meta PageMeta) (string, error) {
	page, err := c.page.RenderPage(ctx, data)
	if err != nil {
		return "", err
	}
	return c.inlineCSS(ctx, page, meta), nil
}

// inlineCSS embeds the theme when the page does not link a stylesheet.
func (c *Converter) inlineCSS(ctx context.Context, page string, meta PageMeta) string {
	if meta.Stylesheet != "" {
		return page
	}
	return c.cssInjector.InjectCSS(ctx, page, c.theme.CSS)
}

// Close releases resources (headless Chrome browser, if one was started).
func (c *Converter) Close() error {
	c.pdfMu.Lock()
	defer c.pdfMu.Unlock()
	if c.pdfConverter != nil {
		return c.pdfConverter.Close()
	}
	return nil
}

func toDebugData(res *Result) *pipeline.DebugData {
	d := &pipeline.DebugData{Normalized: res.Normalized}
	for _, t := range res.Tables {
		d.Tables = append(d.Tables, pipeline.DebugTable(t))
	}
	return d
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}

func isMathMethod(m string) bool {
	switch m {
	case "", MathMathML, MathKaTeX, MathMathJax, MathPlain:
		return true
	}
	return false
}
