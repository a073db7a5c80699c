package posts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writePosts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return dir
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	dir := writePosts(t, map[string]string{
		"old.tex":      `\title{Old} \date{2023-01-10} \begin{document}Old body.\end{document}`,
		"new.tex":      `\title{New \emph{one}} \date{March 3, 2024} \begin{document}New body.\end{document}`,
		"undated.tex":  `\begin{document}No title here.\end{document}`,
		"freeform.tex": `\title{Free} \date{Spring term}`,
		"notes.txt":    "ignored",
		".hidden.tex":  "ignored",
	})
	if err := os.Mkdir(filepath.Join(dir, "drafts.tex"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	list, err := NewStore(dir).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var files []string
	for _, p := range list {
		files = append(files, p.File)
	}
	want := []string{"new.tex", "old.tex", "freeform.tex", "undated.tex"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("List() order = %v, want %v", files, want)
	}

	if list[0].Title != "New one" || list[0].Slug != "new" || list[0].Date != "March 3, 2024" {
		t.Errorf("first post = %+v", list[0])
	}
	if list[3].Title != "undated" {
		t.Errorf("title fallback = %q, want slug", list[3].Title)
	}
	if list[3].Excerpt != "No title here." {
		t.Errorf("excerpt = %q", list[3].Excerpt)
	}
}

func TestStore_ListMissingDirectory(t *testing.T) {
	t.Parallel()

	list, err := NewStore(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v, want empty listing", list, err)
	}
}

func TestStore_ListCanceled(t *testing.T) {
	t.Parallel()

	dir := writePosts(t, map[string]string{"a.tex": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStore(dir).List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestStore_Read(t *testing.T) {
	t.Parallel()

	dir := writePosts(t, map[string]string{"graphs.tex": `\title{Graphs}`})
	store := NewStore(dir)

	tests := []struct {
		name    string
		slug    string
		wantErr error
	}{
		{"slug", "graphs", nil},
		{"filename", "graphs.tex", nil},
		{"missing", "trees", ErrPostNotFound},
		{"empty", "", ErrInvalidSlug},
		{"traversal", "../secret", ErrInvalidSlug},
		{"backslash", `..\secret`, ErrInvalidSlug},
		{"hidden", ".graphs", ErrInvalidSlug},
		{"bare extension", ".tex", ErrInvalidSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := store.Read(tt.slug)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read(%q) error = %v, want %v", tt.slug, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read(%q) error = %v", tt.slug, err)
			}
			if src.Text != `\title{Graphs}` || src.Title != "Graphs" || src.File != "graphs.tex" {
				t.Errorf("Read(%q) = %+v", tt.slug, src)
			}
		})
	}
}

func TestStore_Slugs(t *testing.T) {
	t.Parallel()

	dir := writePosts(t, map[string]string{"b.tex": "", "a.tex": "", "c.md": ""})
	slugs, err := NewStore(dir).Slugs()
	if err != nil {
		t.Fatalf("Slugs() error = %v", err)
	}
	if !reflect.DeepEqual(slugs, []string{"a", "b"}) {
		t.Errorf("Slugs() = %v", slugs)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		wantOK bool
	}{
		{"2024-03-05", true},
		{"March 5, 2024", true},
		{"5 March 2024", true},
		{"Mar 5, 2024", true},
		{"March 2024", true},
		{"2024", true},
		{`\today`, false},
		{"Spring term", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if _, ok := ParseDate(tt.input); ok != tt.wantOK {
				t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
		})
	}
}
