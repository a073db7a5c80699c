package main

import (
	"errors"
	"os"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/posts"
	"github.com/alnah/go-tex2html/internal/site"
)

// Exit codes for the tex2html CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors during PDF export
	ExitRender  = 5 // pandoc missing or the document failed to parse
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, tex2html.ErrBrowserConnect) ||
		errors.Is(err, tex2html.ErrPageCreate) ||
		errors.Is(err, tex2html.ErrPageLoad) ||
		errors.Is(err, tex2html.ErrPDFGeneration) {
		return ExitBrowser
	}

	if errors.Is(err, tex2html.ErrRenderUnavailable) ||
		errors.Is(err, tex2html.ErrParseFailure) {
		return ExitRender
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, posts.ErrPostNotFound) ||
		errors.Is(err, site.ErrWriteOutput) ||
		errors.Is(err, ErrReadSource) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, posts.ErrInvalidSlug) ||
		errors.Is(err, tex2html.ErrEmptySource) ||
		errors.Is(err, tex2html.ErrInvalidMathMethod) ||
		errors.Is(err, tex2html.ErrInvalidDateFormat) ||
		errors.Is(err, tex2html.ErrInvalidAssetPath) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
