package assets

import "fmt"

// Names of the built-in assets.
const (
	StyleName         = "latex"
	PageTemplateName  = "page"
	IndexTemplateName = "index"
)

// StylesheetPath is where the server and the static build publish the theme.
const StylesheetPath = "/assets/latex.css"

// Theme bundles everything needed to wrap rendered posts in pages.
type Theme struct {
	CSS   string
	Page  string // html/template for one post
	Index string // html/template for the post listing
}

// LoadTheme loads the stylesheet and both templates through loader.
func LoadTheme(loader AssetLoader) (*Theme, error) {
	css, err := loader.LoadStyle(StyleName)
	if err != nil {
		return nil, fmt.Errorf("loading stylesheet: %w", err)
	}
	page, err := loader.LoadTemplate(PageTemplateName)
	if err != nil {
		return nil, fmt.Errorf("loading page template: %w", err)
	}
	index, err := loader.LoadTemplate(IndexTemplateName)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	return &Theme{CSS: css, Page: page, Index: index}, nil
}

// DefaultTheme returns the embedded theme.
func DefaultTheme() (*Theme, error) {
	return LoadTheme(NewEmbeddedLoader())
}
