// Package site builds the static post site: one page per post, a listing
// page, the stylesheet and a posts.json index for client-side listings.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/assets"
	"github.com/alnah/go-tex2html/internal/fileutil"
	"github.com/alnah/go-tex2html/internal/posts"
)

// Output layout under the build directory.
const (
	HTMLDir    = "posts_html"
	PDFDir     = "posts_pdf"
	IndexJSON  = "posts.json"
	IndexHTML  = "index.html"
	defaultDir = "public"
)

// Sentinel errors for build operations.
var (
	ErrRendererInit = errors.New("failed to initialize renderer")
	ErrWriteOutput  = errors.New("failed to write output")
)

// Renderer is what the build needs from a converter.
type Renderer interface {
	Convert(ctx context.Context, input tex2html.Input) (*tex2html.Result, error)
	RenderPage(ctx context.Context, res *tex2html.Result, meta tex2html.PageMeta) (string, error)
	RenderIndex(ctx context.Context, entries []tex2html.IndexEntry, meta tex2html.PageMeta) (string, error)
	ExportPDF(ctx context.Context, res *tex2html.Result, meta tex2html.PageMeta) ([]byte, error)
	Stylesheet() string
}

// Compile-time interface implementation check.
var _ Renderer = (*tex2html.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire() (Renderer, error)
	Release(Renderer)
	Size() int
}

// ConverterPool adapts a tex2html.ConverterPool to Pool.
type ConverterPool struct {
	*tex2html.ConverterPool
}

// Compile-time check that ConverterPool implements Pool.
var _ Pool = ConverterPool{}

// Acquire implements Pool.
func (p ConverterPool) Acquire() (Renderer, error) {
	conv, err := p.ConverterPool.Acquire()
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Release implements Pool.
func (p ConverterPool) Release(r Renderer) {
	if conv, ok := r.(*tex2html.Converter); ok {
		p.ConverterPool.Release(conv)
	}
}

// Entry is one line of posts.json.
type Entry struct {
	posts.Post
	HTMLPath string `json:"htmlPath"`
	PDFPath  string `json:"pdfPath,omitempty"`
}

// FileResult holds the outcome of building a single post.
type FileResult struct {
	File     string
	Output   string
	Err      error
	Duration time.Duration
}

// Report summarizes a build. Entries lists the posts that were written, in
// listing order.
type Report struct {
	Results []FileResult
	Entries []Entry
}

// Failed returns the number of posts that could not be built.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Builder renders every post of Store into OutputDir.
type Builder struct {
	Store     *posts.Store
	Pool      Pool
	OutputDir string
	Title     string // listing page title
	Lang      string
	PDF       bool
	Logger    *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func (b *Builder) outputDir() string {
	if b.OutputDir == "" {
		return defaultDir
	}
	return b.OutputDir
}

// Build renders all posts concurrently. A post that fails is reported in
// the result and left out of the indexes; the others are still written.
// The returned error is reserved for failures affecting the whole build.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	list, err := b.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	results := b.renderAll(ctx, list)

	report := &Report{Results: results}
	for i, res := range results {
		if res.Err != nil {
			b.logger().Error("post failed", "file", res.File, "error", res.Err)
			continue
		}
		entry := Entry{Post: list[i], HTMLPath: "/" + path.Join(HTMLDir, list[i].Slug+".html")}
		if b.PDF {
			entry.PDFPath = "/" + path.Join(PDFDir, list[i].Slug+".pdf")
		}
		report.Entries = append(report.Entries, entry)
	}

	if err := b.writeIndexes(ctx, report.Entries); err != nil {
		return report, err
	}

	b.logger().Info("site built",
		"dir", b.outputDir(),
		"posts", len(report.Entries),
		"failed", report.Failed())
	return report, nil
}

// renderAll distributes posts over the pool's converters.
func (b *Builder) renderAll(ctx context.Context, list []posts.Post) []FileResult {
	if len(list) == 0 {
		return nil
	}

	concurrency := min(b.Pool.Size(), len(list))
	results := make([]FileResult, len(list))
	jobs := make(chan int, len(list))
	var wg sync.WaitGroup

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := b.Pool.Acquire()
			if err != nil {
				for idx := range jobs {
					results[idx] = FileResult{File: list[idx].File, Err: fmt.Errorf("%w: %v", ErrRendererInit, err)}
				}
				return
			}
			defer b.Pool.Release(r)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = FileResult{File: list[idx].File, Err: ctx.Err()}
					continue
				}
				results[idx] = b.buildPost(ctx, r, list[idx])
			}
		}()
	}

	for i := range list {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// buildPost renders one post to its page and, when enabled, its PDF.
func (b *Builder) buildPost(ctx context.Context, r Renderer, post posts.Post) (result FileResult) {
	start := time.Now()
	out := filepath.Join(b.outputDir(), HTMLDir, post.Slug+".html")
	result = FileResult{File: post.File, Output: out}
	defer func() { result.Duration = time.Since(start) }()

	src, err := b.Store.Read(post.File)
	if err != nil {
		result.Err = err
		return result
	}

	res, err := r.Convert(ctx, tex2html.Input{Source: src.Text})
	if err != nil {
		result.Err = err
		return result
	}

	meta := tex2html.PageMeta{Title: post.Title, Lang: b.Lang, Stylesheet: assets.StylesheetPath}
	page, err := r.RenderPage(ctx, res, meta)
	if err != nil {
		result.Err = err
		return result
	}
	if err := fileutil.WriteFile(out, []byte(page)); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
		return result
	}

	if b.PDF {
		pdf, err := r.ExportPDF(ctx, res, meta)
		if err != nil {
			result.Err = err
			return result
		}
		pdfPath := filepath.Join(b.outputDir(), PDFDir, post.Slug+".pdf")
		if err := fileutil.WriteFile(pdfPath, pdf); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
			return result
		}
	}

	b.logger().Debug("post built", "file", post.File, "output", out)
	return result
}

// writeIndexes writes posts.json, the listing page and the stylesheet.
func (b *Builder) writeIndexes(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", IndexJSON, err)
	}
	if err := b.write(IndexJSON, data); err != nil {
		return err
	}

	r, err := b.Pool.Acquire()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRendererInit, err)
	}
	defer b.Pool.Release(r)

	listing := make([]tex2html.IndexEntry, len(entries))
	for i, e := range entries {
		listing[i] = tex2html.IndexEntry{Href: e.HTMLPath, Title: e.Title, Date: e.Date, Excerpt: e.Excerpt}
	}
	index, err := r.RenderIndex(ctx, listing, tex2html.PageMeta{
		Title:      b.Title,
		Lang:       b.Lang,
		Stylesheet: assets.StylesheetPath,
	})
	if err != nil {
		return err
	}
	if err := b.write(IndexHTML, []byte(index)); err != nil {
		return err
	}

	return b.write(strings.TrimPrefix(assets.StylesheetPath, "/"), []byte(r.Stylesheet()))
}

func (b *Builder) write(name string, data []byte) error {
	if err := fileutil.WriteFile(filepath.Join(b.outputDir(), filepath.FromSlash(name)), data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
