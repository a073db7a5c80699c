package pipeline

// Notes:
// - Paths are Unix style; the Windows drive-letter form is not exercised.
// - Traversal is checked through the observable result (src untouched).

import (
	"runtime"
	"strings"
	"testing"
)

func TestRewriteAssetURLs(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("Unix paths")
	}

	tests := []struct {
		name         string
		html         string
		siteDir      string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "relative image",
			html:         `<img src="images/plot.png">`,
			siteDir:      "/site/public",
			wantContains: []string{`src="file:///site/public/images/plot.png"`},
		},
		{
			name:         "site root image",
			html:         `<img src="/images/plot.png" alt="">`,
			siteDir:      "/site/public",
			wantContains: []string{`src="file:///site/public/images/plot.png"`, `alt=""`},
		},
		{
			name:         "encoded path decoded once",
			html:         `<img src="my%20plots/a.png">`,
			siteDir:      "/site",
			wantContains: []string{`src="file:///site/my%20plots/a.png"`},
		},
		{
			name:         "https unchanged",
			html:         `<img src="https://example.com/a.png">`,
			siteDir:      "/site",
			wantContains: []string{`src="https://example.com/a.png"`},
		},
		{
			name:         "data uri unchanged",
			html:         `<img src="data:image/png;base64,AAA">`,
			siteDir:      "/site",
			wantContains: []string{`src="data:image/png;base64,AAA"`},
		},
		{
			name:         "traversal unchanged",
			html:         `<img src="../../etc/passwd">`,
			siteDir:      "/site",
			wantContains: []string{`src="../../etc/passwd"`},
			wantExcludes: []string{"file://"},
		},
		{
			name:         "links untouched",
			html:         `<a href="notes.pdf">notes</a>`,
			siteDir:      "/site",
			wantContains: []string{`href="notes.pdf"`},
		},
		{
			name:         "empty site dir is a no-op",
			html:         `<img src="a.png">`,
			siteDir:      "",
			wantContains: []string{`<img src="a.png">`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RewriteAssetURLs(tt.html, tt.siteDir)
			if err != nil {
				t.Fatalf("RewriteAssetURLs() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("RewriteAssetURLs() = %q, want to contain %q", got, want)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("RewriteAssetURLs() = %q, should not contain %q", got, exclude)
				}
			}
		})
	}
}

func TestRewriteAssetURLs_FullDocument(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("Unix paths")
	}

	page := `<!DOCTYPE html>
<html>
<head><title>Post</title></head>
<body><img src="/images/a.png"></body>
</html>`

	got, err := RewriteAssetURLs(page, "/site")
	if err != nil {
		t.Fatalf("RewriteAssetURLs() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(got), "doctype") {
		t.Error("full document should keep its DOCTYPE")
	}
	if !strings.Contains(got, `src="file:///site/images/a.png"`) {
		t.Errorf("image not rewritten: %q", got)
	}
}

func TestIsSitePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"images/a.png", true},
		{"/images/a.png", true},
		{"./a.png", true},
		{"", false},
		{"#fig1", false},
		{"//cdn.example.com/a.png", false},
		{"http://example.com/a.png", false},
		{"file:///tmp/a.png", false},
		{"data:image/png;base64,AAA", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := isSitePath(tt.path); got != tt.want {
				t.Errorf("isSitePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
