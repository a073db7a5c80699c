package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrPostProcess means the rendered fragment could not be parsed for token
// resolution.
var ErrPostProcess = errors.New("html post-processing failed")

// Precompiled regex patterns for token rendering.
var (
	// width=<value> inside \includegraphics options
	widthOption = regexp.MustCompile(`width\s*=\s*([^,\]]+)`)

	// Leading decimal number of a width such as 0.8\textwidth
	leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)`)

	// Whitespace left before the comma that replaces \and
	spaceBeforeComma = regexp.MustCompile(`\s+,`)
)

// captionEscaper escapes the characters that matter inside element content
// and double-quoted attributes.
var captionEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Inline styles of generated markup. Kept inline so fragments render
// correctly even without the theme stylesheet.
const (
	titleBlockStyle = "text-align:center; margin-bottom:1rem;"
	titleStyle      = "font-size:1.5rem; font-weight:700;"
	authorStyle     = "margin-top:0.25rem;"
	dateStyle       = "margin-top:0.15rem; color:#6b7280;"
	captionStyle    = "font-weight:600; margin-top:0.5rem; text-align:center;"
)

// Resolver substitutes token ids in a rendered fragment with their final
// markup and tidies the resulting tree.
type Resolver struct {
	// Engine re-parses table tokens. Nil sends every table to RenderTabular.
	Engine Engine

	// Cells renders fallback table cells. Nil uses Engine when set,
	// otherwise escaped text.
	Cells CellRenderer

	// Logger receives table fallbacks and unknown tokens. Nil discards.
	Logger *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Resolver) cells() CellRenderer {
	if r.Cells != nil {
		return r.Cells
	}
	if r.Engine != nil {
		return &EngineCells{Engine: r.Engine}
	}
	return nil
}

// Resolve replaces every token id found in fragment text with the markup of
// its token, lifts token blocks out of paragraphs, turns centered image
// paragraphs into figure containers and finally decodes legacy placeholders.
// Unknown ids resolve to nothing.
func (r *Resolver) Resolve(ctx context.Context, fragment string, tokens TokenTable) (string, error) {
	doc, isFragment, err := parseHTML(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPostProcess, err)
	}

	blocks := make(map[*html.Node]bool)
	active := make(map[string]bool)
	for _, text := range tokenTextNodes(doc) {
		if err := r.substitute(ctx, text, tokens, blocks, active); err != nil {
			return "", fmt.Errorf("%w: %v", ErrPostProcess, err)
		}
	}
	stripAttrTokens(doc)
	liftBlocks(doc, blocks)
	reclassifyCentering(doc)

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPostProcess, err)
	}
	return ResolveLegacy(out), nil
}

// tokenTextNodes collects text nodes holding at least one token id.
func tokenTextNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && strings.Contains(n.Data, TokenStart) && tokenPattern.MatchString(n.Data) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// substitute splits text around token ids and inserts the parsed markup of
// each token in place. Element nodes produced by block tokens are recorded
// in blocks. Ids left in the inserted markup, such as images inside table
// cells, are substituted too; active holds the ids being expanded so a
// token never expands inside itself.
func (r *Resolver) substitute(ctx context.Context, text *html.Node, tokens TokenTable, blocks map[*html.Node]bool, active map[string]bool) error {
	parent := text.Parent
	s := text.Data
	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: s[last:loc[0]]}, text)
		}
		id := s[loc[0]:loc[1]]
		last = loc[1]
		if active[id] {
			r.logger().Warn("recursive token", slog.String("token", printableID(id)))
			continue
		}
		markup, block := r.renderToken(ctx, id, tokens)
		if markup == "" {
			continue
		}
		nodes, err := parseNodes(markup)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			parent.InsertBefore(n, text)
			if block && n.Type == html.ElementNode {
				blocks[n] = true
			}
		}

		active[id] = true
		for _, n := range nodes {
			for _, inner := range tokenTextNodes(n) {
				if err := r.substitute(ctx, inner, tokens, blocks, active); err != nil {
					return err
				}
			}
		}
		delete(active, id)
	}
	if last < len(s) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: s[last:]}, text)
	}
	parent.RemoveChild(text)

	// a paragraph that only held tokens resolving to nothing goes away
	if parent.DataAtom == atom.P && parent.Parent != nil && allBlank(parent) {
		parent.Parent.RemoveChild(parent)
	}
	return nil
}

// renderToken returns the markup for id and whether it is block level.
func (r *Resolver) renderToken(ctx context.Context, id string, tokens TokenTable) (string, bool) {
	tok, ok := tokens[id]
	if !ok {
		r.logger().Warn("unresolved token", slog.String("token", printableID(id)))
		return "", false
	}

	switch p := tok.Payload.(type) {
	case TitlePayload:
		return TitleBlock(p), true
	case ImagePayload:
		return ImageTag(p.Path, p.Opts), false
	case string:
		if tok.Kind == KindCaption {
			return Caption(p), true
		}
	case TablePayload:
		return r.renderTable(ctx, id, p), true
	}

	r.logger().Warn("token payload mismatch",
		slog.String("token", printableID(id)),
		slog.String("kind", string(tok.Kind)))
	return "", false
}

// renderTable re-parses a table through the engine and falls back to
// RenderTabular when that fails or yields no table.
func (r *Resolver) renderTable(ctx context.Context, id string, p TablePayload) string {
	if r.Engine != nil {
		doc := Wrap(`\begin{tabular}{` + p.ColSpec + `}` + p.Raw + `\end{tabular}`)
		out, err := r.Engine.Render(ctx, doc)
		switch {
		case err != nil:
			r.logger().Info("table render failed, using fallback",
				slog.String("token", printableID(id)),
				slog.String("error", err.Error()))
		case !strings.Contains(out, "<table"):
			r.logger().Info("table render produced no table, using fallback",
				slog.String("token", printableID(id)))
		default:
			return `<div class="latex-table">` + strings.TrimSpace(out) + `</div>`
		}
	}
	return RenderTabular(ctx, p.Raw, p.ColSpec, r.cells())
}

// printableID strips the private-use delimiters for log output.
func printableID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(id, TokenStart), TokenEnd)
}

// TitleBlock renders the title block of \maketitle. Empty fields are
// omitted; when all are empty the result is "".
func TitleBlock(p TitlePayload) string {
	title := titleText(p.Title)
	author := titleText(p.Author)
	date := titleText(p.Date)
	if title == "" && author == "" && date == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="post-maketitle" style="` + titleBlockStyle + `">`)
	if title != "" {
		b.WriteString(`<div class="title" style="` + titleStyle + `">` + title + `</div>`)
	}
	if author != "" {
		b.WriteString(`<div class="author" style="` + authorStyle + `">` + author + `</div>`)
	}
	if date != "" {
		b.WriteString(`<div class="date" style="` + dateStyle + `">` + date + `</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// titleText escapes a title field and maps \\ to a line break and \and to
// a comma.
func titleText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = replaceControlWord(s, "and", func() string { return ", " })
	s = spaceBeforeComma.ReplaceAllString(s, ",")
	s = captionEscaper.Replace(s)
	s = rowSeparator.ReplaceAllString(s, "<br>")
	return strings.Join(strings.Fields(s), " ")
}

// ImageTag renders an image. Double quotes in the path are percent-encoded
// and the remaining markup characters are escaped.
func ImageTag(path, opts string) string {
	src := captionEscaper.Replace(strings.ReplaceAll(path, `"`, "%22"))
	tag := `<img src="` + src + `" alt=""`
	if style := ImageStyle(opts); style != "" {
		tag += ` style="` + captionEscaper.Replace(style) + `"`
	}
	return tag + `>`
}

// ImageStyle derives an inline style from \includegraphics options. A width
// relative to \textwidth becomes a max-width percentage; any other width is
// used as is.
func ImageStyle(opts string) string {
	m := widthOption.FindStringSubmatch(opts)
	if m == nil {
		return ""
	}
	w := strings.TrimSpace(m[1])
	if !strings.Contains(w, "textwidth") {
		return "width:" + w
	}
	num := leadingNumber.FindString(w)
	if num == "" {
		return ""
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return ""
	}
	pct := math.Round(f*100*1e6) / 1e6
	return "max-width:" + strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// Caption renders a float caption.
func Caption(text string) string {
	return `<div class="latex-caption" style="` + captionStyle + `">` + captionEscaper.Replace(text) + `</div>`
}

// stripAttrTokens removes token ids that the engine copied into attributes.
func stripAttrTokens(n *html.Node) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			if strings.Contains(a.Val, TokenStart) {
				n.Attr[i].Val = tokenPattern.ReplaceAllString(a.Val, "")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripAttrTokens(c)
	}
}

// liftBlocks moves token blocks out of enclosing paragraphs. Inline content
// around a block stays in paragraphs that copy the original attributes;
// paragraphs left with only whitespace are dropped.
func liftBlocks(doc *html.Node, blocks map[*html.Node]bool) {
	if len(blocks) == 0 {
		return
	}

	var paragraphs []*html.Node
	for n := range blocks {
		if p := n.Parent; p != nil && p.DataAtom == atom.P && !containsNode(paragraphs, p) {
			paragraphs = append(paragraphs, p)
		}
	}

	for _, p := range paragraphs {
		parent := p.Parent
		var current *html.Node
		flush := func() {
			if current != nil && !allBlank(current) {
				parent.InsertBefore(current, p)
			}
			current = nil
		}
		for c := p.FirstChild; c != nil; {
			next := c.NextSibling
			p.RemoveChild(c)
			if blocks[c] {
				flush()
				parent.InsertBefore(c, p)
			} else {
				if current == nil {
					current = &html.Node{
						Type:     html.ElementNode,
						DataAtom: atom.P,
						Data:     "p",
						Attr:     append([]html.Attribute(nil), p.Attr...),
					}
				}
				current.AppendChild(c)
			}
			c = next
		}
		flush()
		parent.RemoveChild(p)
	}
}

func containsNode(list []*html.Node, n *html.Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

// allBlank reports whether every child of n is blank.
func allBlank(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlank(c) {
			return false
		}
	}
	return true
}

// reclassifyCentering turns centered paragraphs that hold an image into
// figure containers. Centered text paragraphs are left alone.
func reclassifyCentering(doc *html.Node) {
	var targets []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P &&
			(hasClass(n, "centering") || hasClass(n, "center")) &&
			findElement(n, atom.Img) != nil {
			targets = append(targets, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, p := range targets {
		div := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Div,
			Data:     "div",
			Attr:     []html.Attribute{{Key: "class", Val: "latex-figure centering"}},
		}
		moveChildren(div, p)
		p.Parent.InsertBefore(div, p)
		p.Parent.RemoveChild(p)
	}
}
