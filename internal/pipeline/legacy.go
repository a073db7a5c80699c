package pipeline

import (
	"net/url"
	"regexp"
	"strings"
)

// Placeholders written by older versions of the normalizer. Posts converted
// with those versions still carry them in their rendered output.
var (
	legacyImage  = regexp.MustCompile(`__IMG__([^_]+?)__OPT__([^_]*?)__END__`)
	legacyFigure = regexp.MustCompile(`(?s)__FIG__(.*?)__CAP__([^_]*?)__END__`)
)

const (
	legacyFigureStyle  = "text-align:center; margin:1rem 0;"
	legacyCaptionStyle = "font-weight:600; margin-top:0.5rem;"
)

// ResolveLegacy decodes __IMG__path__OPT__opts__END__ and
// __FIG__inner__CAP__caption__END__ placeholders in serialized markup.
// Paths and captions are URI-encoded; an image whose path does not decode
// is dropped.
func ResolveLegacy(markup string) string {
	if !strings.Contains(markup, "__IMG__") && !strings.Contains(markup, "__FIG__") {
		return markup
	}

	markup = legacyImage.ReplaceAllStringFunc(markup, func(m string) string {
		sub := legacyImage.FindStringSubmatch(m)
		path, err := url.PathUnescape(sub[1])
		if err != nil {
			return ""
		}
		return ImageTag(path, sub[2])
	})

	return legacyFigure.ReplaceAllStringFunc(markup, func(m string) string {
		sub := legacyFigure.FindStringSubmatch(m)
		caption, err := url.PathUnescape(sub[2])
		if err != nil {
			caption = sub[2]
		}
		out := `<div class="latex-figure" style="` + legacyFigureStyle + `">` + sub[1]
		if caption != "" {
			out += `<div class="latex-caption" style="` + legacyCaptionStyle + `">` + captionEscaper.Replace(caption) + `</div>`
		}
		return out + `</div>`
	})
}
