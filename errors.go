package tex2html

import (
	"errors"

	"github.com/alnah/go-tex2html/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrEmptySource = errors.New("latex source cannot be empty")
	ErrSuperseded  = errors.New("render superseded by a newer one")

	// Render errors. A document that fails either way produces no output.
	ErrRenderUnavailable = pipeline.ErrRenderUnavailable
	ErrParseFailure      = pipeline.ErrParseFailure
	ErrPostProcess       = pipeline.ErrPostProcess
	ErrPageRender        = pipeline.ErrPageRender

	// PDF export errors.
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")

	// Option validation errors.
	ErrInvalidMathMethod = errors.New("invalid math method")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidAssetPath  = errors.New("invalid asset path")
)
