package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/posts"
	"github.com/alnah/go-tex2html/internal/site"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		{"browser connect", tex2html.ErrBrowserConnect, ExitBrowser},
		{"page load", tex2html.ErrPageLoad, ExitBrowser},
		{"pdf generation", tex2html.ErrPDFGeneration, ExitBrowser},
		{"wrapped browser connect", fmt.Errorf("exporting: %w", tex2html.ErrBrowserConnect), ExitBrowser},

		{"pandoc missing", tex2html.ErrRenderUnavailable, ExitRender},
		{"parse failure", fmt.Errorf("post.tex: %w", tex2html.ErrParseFailure), ExitRender},

		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"post not found", posts.ErrPostNotFound, ExitIO},
		{"site write", site.ErrWriteOutput, ExitIO},
		{"read source", ErrReadSource, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},

		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"invalid config", config.ErrInvalidConfig, ExitUsage},
		{"invalid slug", posts.ErrInvalidSlug, ExitUsage},
		{"empty source", tex2html.ErrEmptySource, ExitUsage},
		{"invalid math", tex2html.ErrInvalidMathMethod, ExitUsage},
		{"invalid date format", tex2html.ErrInvalidDateFormat, ExitUsage},
		{"invalid asset path", tex2html.ErrInvalidAssetPath, ExitUsage},
		{"usage", fmt.Errorf("%w: unknown flag", ErrUsage), ExitUsage},

		{"unknown", errors.New("something else"), ExitGeneral},
		{"build failed alone", ErrBuildFailed, ExitGeneral},
		{"build failed with cause", fmt.Errorf("%w: 1 of 2 posts failed: %w", ErrBuildFailed, tex2html.ErrParseFailure), ExitRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	codes := []int{ExitSuccess, ExitGeneral, ExitUsage, ExitIO, ExitBrowser, ExitRender}
	seen := make(map[int]bool)
	for _, c := range codes {
		if c >= 126 {
			t.Errorf("exit code %d collides with shell-reserved codes", c)
		}
		if seen[c] {
			t.Errorf("exit code %d used twice", c)
		}
		seen[c] = true
	}
	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Error("0, 1 and 2 must keep their Unix meaning")
	}
}
