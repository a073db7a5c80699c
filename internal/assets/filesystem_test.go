package assets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "latex.css")
	if err := os.WriteFile(file, []byte("body{}"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"existing directory", t.TempDir(), false},
		{"empty path", "", true},
		{"missing directory", filepath.Join(t.TempDir(), "nope"), true},
		{"regular file", file, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewFilesystemLoader(tt.dir)
			if tt.wantErr && !errors.Is(err, ErrInvalidBasePath) {
				t.Errorf("error = %v, want ErrInvalidBasePath", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFilesystemLoader_Load(t *testing.T) {
	t.Parallel()

	dir := customDir(t, map[string]string{
		"styles/latex.css":    ".latex-rendered { color: navy; }",
		"templates/page.html": "<main>{{.Content}}</main>",
	})
	loader, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	tests := []struct {
		name    string
		load    func() (string, error)
		want    string
		wantErr error
	}{
		{"style", func() (string, error) { return loader.LoadStyle("latex") }, ".latex-rendered { color: navy; }", nil},
		{"template", func() (string, error) { return loader.LoadTemplate("page") }, "<main>{{.Content}}</main>", nil},
		{"missing style", func() (string, error) { return loader.LoadStyle("dark") }, "", ErrStyleNotFound},
		{"missing template", func() (string, error) { return loader.LoadTemplate("index") }, "", ErrTemplateNotFound},
		{"traversal name", func() (string, error) { return loader.LoadStyle("../latex") }, "", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	outside := filepath.Join(t.TempDir(), "secret.css")
	if err := os.WriteFile(outside, []byte("secret"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	dir := customDir(t, map[string]string{"templates/page.html": "x"})
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "styles", "latex.css")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	loader, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}
	got, err := loader.LoadStyle("latex")
	if !errors.Is(err, ErrAssetRead) {
		t.Errorf("LoadStyle() = %q, %v; want ErrAssetRead", got, err)
	}
}
