package site

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/posts"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockRenderer struct {
	mu       sync.Mutex
	failOn   string // Convert fails when the source contains this
	pdfCalls int
}

func (m *mockRenderer) Convert(ctx context.Context, input tex2html.Input) (*tex2html.Result, error) {
	if m.failOn != "" && strings.Contains(input.Source, m.failOn) {
		return nil, tex2html.ErrParseFailure
	}
	return &tex2html.Result{HTML: "<p>" + input.Source + "</p>"}, nil
}

func (m *mockRenderer) RenderPage(ctx context.Context, res *tex2html.Result, meta tex2html.PageMeta) (string, error) {
	return "<title>" + meta.Title + "</title>" + res.HTML, nil
}

func (m *mockRenderer) RenderIndex(ctx context.Context, entries []tex2html.IndexEntry, meta tex2html.PageMeta) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Href + "\n")
	}
	return b.String(), nil
}

func (m *mockRenderer) ExportPDF(ctx context.Context, res *tex2html.Result, meta tex2html.PageMeta) ([]byte, error) {
	m.mu.Lock()
	m.pdfCalls++
	m.mu.Unlock()
	return []byte("%PDF"), nil
}

func (m *mockRenderer) Stylesheet() string {
	return "body{}"
}

type mockPool struct {
	renderer   Renderer
	acquireErr error
	size       int
}

func (p *mockPool) Acquire() (Renderer, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.renderer, nil
}

func (p *mockPool) Release(Renderer) {}

func (p *mockPool) Size() int { return p.size }

func writePosts(t *testing.T, files map[string]string) *posts.Store {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return posts.NewStore(dir)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBuild(t *testing.T) {
	t.Parallel()

	store := writePosts(t, map[string]string{
		"graphs.tex": `\title{Graphs}\date{2024-01-02} body graphs`,
		"trees.tex":  `\title{Trees}\date{2023-05-06} body trees`,
		"broken.tex": `\title{Broken} BROKEN`,
	})
	out := t.TempDir()
	b := &Builder{
		Store:     store,
		Pool:      &mockPool{renderer: &mockRenderer{failOn: "BROKEN"}, size: 2},
		OutputDir: out,
		Title:     "Posts",
	}

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
	for _, res := range report.Results {
		if res.File == "broken.tex" && !errors.Is(res.Err, tex2html.ErrParseFailure) {
			t.Errorf("broken.tex error = %v, want ErrParseFailure", res.Err)
		}
	}

	page := readFile(t, filepath.Join(out, HTMLDir, "graphs.html"))
	if !strings.Contains(page, "<title>Graphs</title>") {
		t.Errorf("graphs.html = %q", page)
	}
	if _, err := os.Stat(filepath.Join(out, HTMLDir, "broken.html")); !os.IsNotExist(err) {
		t.Error("failed post was written")
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(out, IndexJSON))), &entries); err != nil {
		t.Fatalf("posts.json: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("posts.json has %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first["filename"] != "graphs.tex" || first["name"] != "graphs" || first["htmlPath"] != "/posts_html/graphs.html" {
		t.Errorf("first entry = %v", first)
	}
	if _, ok := first["pdfPath"]; ok {
		t.Error("pdfPath set without PDF export")
	}

	index := readFile(t, filepath.Join(out, IndexHTML))
	if !strings.Contains(index, "/posts_html/trees.html") {
		t.Errorf("index.html = %q", index)
	}
	if css := readFile(t, filepath.Join(out, "assets", "latex.css")); css != "body{}" {
		t.Errorf("latex.css = %q", css)
	}
}

func TestBuild_PDF(t *testing.T) {
	t.Parallel()

	store := writePosts(t, map[string]string{"a.tex": "a", "b.tex": "b"})
	renderer := &mockRenderer{}
	out := t.TempDir()
	b := &Builder{Store: store, Pool: &mockPool{renderer: renderer, size: 1}, OutputDir: out, PDF: true}

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if renderer.pdfCalls != 2 {
		t.Errorf("ExportPDF called %d times, want 2", renderer.pdfCalls)
	}
	if got := readFile(t, filepath.Join(out, PDFDir, "a.pdf")); got != "%PDF" {
		t.Errorf("a.pdf = %q", got)
	}
	if report.Entries[0].PDFPath != "/posts_pdf/a.pdf" {
		t.Errorf("PDFPath = %q", report.Entries[0].PDFPath)
	}
}

func TestBuild_EmptyStore(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	b := &Builder{
		Store:     posts.NewStore(filepath.Join(t.TempDir(), "missing")),
		Pool:      &mockPool{renderer: &mockRenderer{}, size: 4},
		OutputDir: out,
	}

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("Results = %v", report.Results)
	}
	if got := strings.TrimSpace(readFile(t, filepath.Join(out, IndexJSON))); got != "[]" {
		t.Errorf("posts.json = %q, want []", got)
	}
}

func TestBuild_AcquireFailure(t *testing.T) {
	t.Parallel()

	store := writePosts(t, map[string]string{"a.tex": "a"})
	b := &Builder{
		Store:     store,
		Pool:      &mockPool{acquireErr: errors.New("no browser"), size: 1},
		OutputDir: t.TempDir(),
	}

	report, err := b.Build(context.Background())
	if !errors.Is(err, ErrRendererInit) {
		t.Errorf("Build() error = %v, want ErrRendererInit", err)
	}
	if report == nil || !errors.Is(report.Results[0].Err, ErrRendererInit) {
		t.Errorf("post result = %+v", report)
	}
}

func TestBuild_Canceled(t *testing.T) {
	t.Parallel()

	store := writePosts(t, map[string]string{"a.tex": "a"})
	b := &Builder{Store: store, Pool: &mockPool{renderer: &mockRenderer{}, size: 1}, OutputDir: t.TempDir()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestConverterPool_Adapter(t *testing.T) {
	t.Parallel()

	pool := tex2html.NewConverterPool(1, tex2html.WithEngine(echoEngine{}))
	defer pool.Close()

	store := writePosts(t, map[string]string{"a.tex": `\title{A} Hello`})
	out := t.TempDir()
	b := &Builder{Store: store, Pool: ConverterPool{pool}, OutputDir: out}

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report.Failed() != 0 {
		t.Fatalf("Build() failures: %+v", report.Results)
	}
	if page := readFile(t, filepath.Join(out, HTMLDir, "a.html")); !strings.Contains(page, `href="/assets/latex.css"`) {
		t.Errorf("a.html does not link the stylesheet:\n%s", page)
	}
}

type echoEngine struct{}

func (echoEngine) Render(ctx context.Context, document string) (string, error) {
	return "<p>rendered</p>", nil
}
