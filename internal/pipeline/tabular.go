package pipeline

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/net/html/atom"
)

// Precompiled regex patterns for the fallback table renderer.
var (
	// Row separator: \\ optionally followed by whitespace
	rowSeparator = regexp.MustCompile(`\\\\\s*`)

	// Horizontal rules, including booktabs and \cline
	ruleMarker = regexp.MustCompile(`\\(?:hline|toprule|midrule|bottomrule)|\\cline\s*\{[^}]*\}`)

	// Stray closing braces left before the first cell text
	leadingBraces = regexp.MustCompile(`^\}+`)

	// Generated inline tags escaped by the external parser
	escapedTag = regexp.MustCompile(`&lt;(/?)(strong|em)&gt;`)
)

// cellLiterals turns escaped TeX specials into literal characters.
// Runs on escaped text, so \& arrives as \&amp;.
var cellLiterals = strings.NewReplacer(
	`\%`, "%", `\{`, "{", `\}`, "}",
	`\&amp;`, "&amp;", `\_`, "_", `\$`, "$", `\#`, "#",
)

// inlineMacros maps inline formatting macros to HTML tags.
var inlineMacros = []struct{ name, tag string }{
	{"textbf", "strong"},
	{"textit", "em"},
	{"emph", "em"},
}

// hlineRow is emitted for a row holding only a rule marker.
const hlineRow = `<tr class="hline"><td colspan="%d" style="border-top:1px solid #e5e7eb;padding:0"></td></tr>`

// CellRenderer renders the content of one table cell to HTML.
type CellRenderer interface {
	RenderCell(ctx context.Context, cell string) (string, error)
}

// EngineCells renders cells by running the external engine on a
// mini-document and keeping the body markup.
type EngineCells struct {
	Engine Engine
}

// Compile-time interface check.
var _ CellRenderer = (*EngineCells)(nil)

// RenderCell implements CellRenderer.
func (c *EngineCells) RenderCell(ctx context.Context, cell string) (string, error) {
	out, err := c.Engine.Render(ctx, Wrap(cell))
	if err != nil {
		return "", err
	}
	body, err := extractBody(out)
	if err != nil {
		return "", err
	}
	return escapedTag.ReplaceAllString(body, "<$1$2>"), nil
}

// extractBody returns the inner markup of a rendered mini-document: the
// children of <body> when present, unwrapped from a lone paragraph.
func extractBody(rendered string) (string, error) {
	doc, _, err := parseHTML(rendered)
	if err != nil {
		return "", err
	}
	root := doc
	if body := findElement(doc, atom.Body); body != nil {
		root = body
	}

	if only := soleElement(root); only != nil && only.DataAtom == atom.P {
		root = only
	}
	out, err := renderChildren(root)
	return strings.TrimSpace(out), err
}

// ColumnCount returns the number of columns a table needs: the number of
// column letters in colSpec (brace arguments such as p{3cm} ignored) or the
// number of cells in the first row, whichever is larger, and at least 1.
func ColumnCount(colSpec, raw string) int {
	letters := 0
	for i := 0; i < len(colSpec); i++ {
		switch c := colSpec[i]; {
		case c == '{':
			if _, end, ok := readGroup(colSpec, i); ok {
				i = end - 1
			}
		case isLetter(c):
			letters++
		}
	}

	cells := 0
	for _, row := range splitRows(raw) {
		if isRuleRow(row) {
			continue
		}
		cells = len(splitCells(row))
		break
	}

	return max(1, letters, cells)
}

// RenderTabular converts raw tabular rows into an HTML table without relying
// on the external parser for the table structure. When cells is non-nil it
// renders each cell; a cell it fails on falls back to escaped text.
func RenderTabular(ctx context.Context, raw, colSpec string, cells CellRenderer) string {
	cols := ColumnCount(colSpec, raw)

	var b strings.Builder
	b.WriteString(`<div class="latex-table"><table>`)
	for _, row := range splitRows(raw) {
		if isRuleRow(row) {
			fmt.Fprintf(&b, hlineRow, cols)
			continue
		}

		parts := splitCells(row)
		header := true
		for i, p := range parts {
			p = ruleMarker.ReplaceAllString(p, "")
			p = strings.TrimSpace(leadingBraces.ReplaceAllString(strings.TrimSpace(p), ""))
			parts[i] = p
			if p != "" && !isBold(p) {
				header = false
			}
		}

		tag := "td"
		if header {
			tag = "th"
		}
		b.WriteString("<tr>")
		for i := 0; i < cols; i++ {
			content := ""
			if i < len(parts) {
				content = renderCell(ctx, parts[i], cells)
			}
			b.WriteString("<" + tag + ">" + content + "</" + tag + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></div>")
	return b.String()
}

// renderCell renders one cleaned cell through cells, or as escaped text.
func renderCell(ctx context.Context, cell string, cells CellRenderer) string {
	if cell == "" {
		return ""
	}
	if cells != nil {
		if out, err := cells.RenderCell(ctx, applyInlineMacros(cell)); err == nil {
			return out
		}
	}
	return cellLiterals.Replace(applyInlineMacros(html.EscapeString(cell)))
}

// applyInlineMacros replaces \textbf, \textit and \emph with tags.
func applyInlineMacros(s string) string {
	for _, m := range inlineMacros {
		tag := m.tag
		s = rewriteCommand(s, m.name, 1, func(cmd command) string {
			return "<" + tag + ">" + cmd.args[0] + "</" + tag + ">"
		})
	}
	return s
}

// isBold reports whether the whole cell is one \textbf{...}.
func isBold(cell string) bool {
	if findCommand(cell, "textbf", 0) != 0 {
		return false
	}
	cmd, ok := parseCommand(cell, 0, "textbf", 1)
	return ok && !cmd.hasOpt && cmd.end == len(cell)
}

// splitRows splits raw tabular content on \\ and drops empty rows.
func splitRows(raw string) []string {
	var rows []string
	for _, r := range rowSeparator.Split(raw, -1) {
		if r = strings.TrimSpace(r); r != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

// isRuleRow reports whether row holds nothing but rule markers.
func isRuleRow(row string) bool {
	return strings.TrimSpace(ruleMarker.ReplaceAllString(row, "")) == "" && ruleMarker.MatchString(row)
}

// splitCells splits a row on unescaped &. Ampersands inside braces belong to
// the enclosing argument.
func splitCells(row string) []string {
	var cells []string
	depth, last := 0, 0
	for i := 0; i < len(row); i++ {
		switch row[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '&':
			if depth == 0 {
				cells = append(cells, row[last:i])
				last = i + 1
			}
		}
	}
	return append(cells, row[last:])
}
