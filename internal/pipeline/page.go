package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrPageRender indicates the page template failed to execute.
var ErrPageRender = errors.New("page template rendering failed")

// PageData holds what the page template needs to wrap a rendered fragment.
type PageData struct {
	Title      string
	Lang       string
	Stylesheet string // href of the theme stylesheet; empty when CSS is inlined
	Content    template.HTML
	Error      string // shown in place of Content when the render pass failed
	Debug      *DebugData
}

// DebugData exposes the intermediate state of a render pass.
type DebugData struct {
	Normalized string
	Tables     []DebugTable
}

// DebugTable is one table token in readable form.
type DebugTable struct {
	ID      string
	ColSpec string
	Raw     string
}

// NewDebugData builds debug output from a normalized text and its tokens.
func NewDebugData(normalized string, tokens TokenTable) *DebugData {
	d := &DebugData{Normalized: normalized}
	for _, tok := range tokens.Tables() {
		p, _ := tok.Payload.(TablePayload)
		d.Tables = append(d.Tables, DebugTable{ID: printableID(tok.ID), ColSpec: p.ColSpec, Raw: p.Raw})
	}
	return d
}

// PageRenderer defines the contract for wrapping a fragment in a full page.
type PageRenderer interface {
	RenderPage(ctx context.Context, data *PageData) (string, error)
}

// PageTemplate renders pages from an html/template.
type PageTemplate struct {
	tmpl *template.Template
}

// NewPageTemplate creates a PageTemplate from template content.
// Returns error if the template cannot be parsed.
func NewPageTemplate(tmplContent string) (*PageTemplate, error) {
	tmpl, err := template.New("page").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return &PageTemplate{tmpl: tmpl}, nil
}

// RenderPage executes the template. A missing Lang defaults to "en".
func (p *PageTemplate) RenderPage(ctx context.Context, data *PageData) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if data == nil {
		data = &PageData{}
	}
	if data.Lang == "" {
		data.Lang = "en"
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageRender, err)
	}
	return buf.String(), nil
}

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
// Used for pages that must render without access to the stylesheet URL.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
