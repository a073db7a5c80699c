package posts

import (
	"regexp"
	"strings"
)

// Excerpt limits, in runes.
const (
	introLength   = 200
	excerptLength = 300
)

var (
	texComment      = regexp.MustCompile(`(?m)(^|[^\\])%.*$`)
	introSection    = regexp.MustCompile(`(?is)\\section\*?\{Introduction\}(.*?)(?:\\section\*?\{|\\end\{document\}|$)`)
	documentBody    = regexp.MustCompile(`(?s)\\begin\{document\}(.*?)\\end\{document\}`)
	paragraphBreak  = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	introCommand    = regexp.MustCompile(`\\[a-zA-Z@]+(?:\{[^}]*\})?`)
	environmentSpan = regexp.MustCompile(`(?s)\\begin\{[^}]+\}.*?\\end\{[^}]+\}`)
	mathSpan        = regexp.MustCompile(`(?s)\$\$.*?\$\$|\$[^$]*\$|\\\[.*?\\\]|\\\(.*?\\\)`)
	commandWithArg  = regexp.MustCompile(`\\[a-zA-Z@]+\*?\s*(?:\[[^\]]*\])?\s*\{([^}]*)\}`)
	bareCommand     = regexp.MustCompile(`\\[a-zA-Z@]+\*?\s*(?:\[[^\]]*\])?`)
	lineBreak       = regexp.MustCompile(`\\\\(?:\[[^\]]*\])?`)
	escapedChar     = regexp.MustCompile(`\\([%&#_$])`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// Excerpt returns a plain-text teaser: the start of an "Introduction"
// section when there is one, else the first paragraph of the document body
// that still has text once TeX is stripped.
func Excerpt(text string) string {
	if m := introSection.FindStringSubmatch(text); m != nil {
		intro := texComment.ReplaceAllString(m[1], "$1")
		intro = introCommand.ReplaceAllString(intro, "")
		intro = strings.NewReplacer("{", " ", "}", " ").Replace(intro)
		intro = truncate(collapse(intro), introLength)
		return truncate(StripTeX(intro), excerptLength)
	}

	body := text
	if m := documentBody.FindStringSubmatch(text); m != nil {
		body = m[1]
	}
	for _, para := range paragraphBreak.Split(body, -1) {
		if s := StripTeX(para); s != "" {
			return truncate(s, excerptLength)
		}
	}
	return ""
}

// StripTeX reduces LaTeX to readable text: comments, environments and math
// are dropped, commands with a braced argument keep the argument.
func StripTeX(s string) string {
	if s == "" {
		return ""
	}
	s = texComment.ReplaceAllString(s, "$1")
	s = environmentSpan.ReplaceAllString(s, " ")
	s = mathSpan.ReplaceAllString(s, " ")
	s = lineBreak.ReplaceAllString(s, " ")
	s = commandWithArg.ReplaceAllString(s, "$1")
	s = bareCommand.ReplaceAllString(s, " ")
	s = escapedChar.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("{", " ", "}", " ", "~", " ").Replace(s)
	return collapse(s)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
