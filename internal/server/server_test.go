package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/pipeline"
	"github.com/alnah/go-tex2html/internal/posts"
)

// countingEngine wraps the document body in a paragraph and counts calls.
// Documents containing FAIL are rejected like pandoc would.
type countingEngine struct {
	calls atomic.Int64
}

func (e *countingEngine) Render(ctx context.Context, document string) (string, error) {
	e.calls.Add(1)
	if strings.Contains(document, "FAIL") {
		return "", pipeline.ErrParseFailure
	}
	_, body, _ := strings.Cut(document, `\begin{document}`)
	body, _, _ = strings.Cut(body, `\end{document}`)
	return "<p>" + strings.TrimSpace(body) + "</p>", nil
}

func newTestServer(t *testing.T, cacheSize int) (*Server, *countingEngine) {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"graphs.tex": "\\title{Graphs}\n\\date{2024-01-02}\n\\begin{document}\nGraph body.\n\\end{document}",
		"broken.tex": "\\title{Broken}\n\\begin{document}\nFAIL\n\\end{document}",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	engine := &countingEngine{}
	conv, err := tex2html.NewConverter(tex2html.WithEngine(engine))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = conv.Close() })

	return New(conv, posts.NewStore(dir), nil, Options{Title: "Posts", CacheSize: cacheSize}), engine
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)
	rec := get(t, srv, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStylesheet(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)
	rec := get(t, srv, "/assets/latex.css")

	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css") {
		t.Fatalf("status = %d, content type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), ".latex-rendered") {
		t.Error("stylesheet does not contain the theme")
	}
}

func TestIndex(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)

	if rec := get(t, srv, "/"); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/posts" {
		t.Errorf("/ = %d %q, want redirect to /posts", rec.Code, rec.Header().Get("Location"))
	}

	rec := get(t, srv, "/posts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{`href="/posts/graphs"`, "Graphs", "Graph body."} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestPost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "rendered",
			target:     "/posts/graphs",
			wantStatus: http.StatusOK,
			wantBody:   []string{"<title>Graphs</title>", "Graph body.", `href="/assets/latex.css"`},
		},
		{
			name:       "debug",
			target:     "/posts/graphs?debug=latex",
			wantStatus: http.StatusOK,
			wantBody:   []string{"Normalized source"},
		},
		{
			name:       "parse failure shows error state",
			target:     "/posts/broken",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"latex-error", "latex parse failed"},
		},
		{
			name:       "missing post",
			target:     "/posts/nothing",
			wantStatus: http.StatusNotFound,
			wantBody:   []string{"latex-error", "post not found"},
		},
		{
			name:       "hidden file",
			target:     "/posts/.secret",
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"invalid post identifier"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t, 0)
			rec := get(t, srv, tt.target)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body missing %q:\n%s", want, rec.Body.String())
				}
			}
			if tt.wantStatus != http.StatusOK && strings.Contains(rec.Body.String(), "FAIL") {
				t.Error("error page contains partial document")
			}
		})
	}
}

func TestPost_Cache(t *testing.T) {
	t.Parallel()

	srv, engine := newTestServer(t, 4)

	for range 3 {
		if rec := get(t, srv, "/posts/graphs"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if n := engine.calls.Load(); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}

	// debug output is cached separately
	get(t, srv, "/posts/graphs?debug=latex")
	if n := engine.calls.Load(); n != 2 {
		t.Errorf("engine called %d times, want 2", n)
	}
}

func TestPost_CacheDisabled(t *testing.T) {
	t.Parallel()

	srv, engine := newTestServer(t, 0)
	get(t, srv, "/posts/graphs")
	get(t, srv, "/posts/graphs")

	if n := engine.calls.Load(); n != 2 {
		t.Errorf("engine called %d times, want 2", n)
	}
}

func TestAPIPosts(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)

	rec := get(t, srv, "/api/posts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0]["name"] != "graphs" || list[0]["htmlPath"] != "/posts/graphs" {
		t.Errorf("list = %v", list)
	}

	rec = get(t, srv, "/api/posts/graphs")
	var post map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if html, _ := post["html"].(string); !strings.Contains(html, "Graph body.") {
		t.Errorf("post = %v", post)
	}

	if rec := get(t, srv, "/api/posts/broken"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("broken status = %d, want 422", rec.Code)
	}
	if rec := get(t, srv, "/api/posts/nothing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"renders", `Hello \emph{there}`, http.StatusOK, "Hello"},
		{"empty source", "", http.StatusBadRequest, "empty"},
		{"parse failure", "FAIL", http.StatusUnprocessableEntity, "latex parse failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/preview?view="+strings.ReplaceAll(tt.name, " ", "-"), strings.NewReader(tt.body))
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestPreview_TooLarge(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, 0)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/preview", strings.NewReader(strings.Repeat("x", maxPreviewBytes+1)))
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
