package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// wrapCells wraps every cell in a span so the test can see it was used.
type wrapCells struct{ got []string }

func (w *wrapCells) RenderCell(_ context.Context, cell string) (string, error) {
	w.got = append(w.got, cell)
	return "<span>" + cell + "</span>", nil
}

type failCells struct{}

func (failCells) RenderCell(context.Context, string) (string, error) {
	return "", errors.New("boom")
}

const hline2 = `<tr class="hline"><td colspan="2" style="border-top:1px solid #e5e7eb;padding:0"></td></tr>`

func TestRenderTabular(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		colSpec  string
		expected string
	}{
		{
			name:    "bold first row becomes header",
			raw:     `\textbf{Name}&\textbf{Age}\\Alice&30\\`,
			colSpec: "ll",
			expected: `<div class="latex-table"><table>` +
				`<tr><th><strong>Name</strong></th><th><strong>Age</strong></th></tr>` +
				`<tr><td>Alice</td><td>30</td></tr>` +
				`</table></div>`,
		},
		{
			name:    "rule rows",
			raw:     "\\hline a & b \\\\ \\hline c & d \\\\ \\hline",
			colSpec: "|l|l|",
			expected: `<div class="latex-table"><table>` +
				`<tr><td>a</td><td>b</td></tr>` +
				`<tr><td>c</td><td>d</td></tr>` +
				hline2 +
				`</table></div>`,
		},
		{
			name:    "short rows padded",
			raw:     `a\\b&c\\`,
			colSpec: "lll",
			expected: `<div class="latex-table"><table>` +
				`<tr><td>a</td><td></td><td></td></tr>` +
				`<tr><td>b</td><td>c</td><td></td></tr>` +
				`</table></div>`,
		},
		{
			name:    "escaping and literals",
			raw:     `5\% & a<b & \{x\}`,
			colSpec: "",
			expected: `<div class="latex-table"><table>` +
				`<tr><td>5%</td><td>a&lt;b</td><td>{x}</td></tr>` +
				`</table></div>`,
		},
		{
			name:    "escaped ampersand stays in its cell",
			raw:     `R\&D & x`,
			colSpec: "ll",
			expected: `<div class="latex-table"><table>` +
				`<tr><td>R&amp;D</td><td>x</td></tr>` +
				`</table></div>`,
		},
		{
			name:    "empty cells count as header",
			raw:     `\textbf{A} & \\ x & \emph{y}`,
			colSpec: "ll",
			expected: `<div class="latex-table"><table>` +
				`<tr><th><strong>A</strong></th><th></th></tr>` +
				`<tr><td>x</td><td><em>y</em></td></tr>` +
				`</table></div>`,
		},
		{
			name:     "empty content",
			raw:      "",
			colSpec:  "l",
			expected: `<div class="latex-table"><table></table></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := RenderTabular(context.Background(), tt.raw, tt.colSpec, nil)
			if got != tt.expected {
				t.Errorf("RenderTabular() =\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}

func TestRenderTabular_CellRenderer(t *testing.T) {
	t.Parallel()

	cells := &wrapCells{}
	got := RenderTabular(context.Background(), `\emph{x} & y`, "ll", cells)

	if !strings.Contains(got, "<td><span><em>x</em></span></td>") {
		t.Errorf("RenderTabular() = %s", got)
	}
	if len(cells.got) != 2 || cells.got[0] != "<em>x</em>" {
		t.Errorf("cells received %q", cells.got)
	}
}

func TestRenderTabular_CellRendererFailure(t *testing.T) {
	t.Parallel()

	got := RenderTabular(context.Background(), `a<b & c`, "ll", failCells{})
	if !strings.Contains(got, "<td>a&lt;b</td><td>c</td>") {
		t.Errorf("RenderTabular() = %s", got)
	}
}

func TestEngineCells(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{render: func(string) (string, error) {
		return "<p>&lt;strong&gt;N&lt;/strong&gt; 5%</p>\n", nil
	}}
	cells := &EngineCells{Engine: engine}

	got, err := cells.RenderCell(context.Background(), `<strong>N</strong> 5\%`)
	if err != nil {
		t.Fatalf("RenderCell() error = %v", err)
	}
	if got != "<strong>N</strong> 5%" {
		t.Errorf("RenderCell() = %q", got)
	}
	if doc := engine.docs[0]; !strings.Contains(doc, `\begin{document}`) || !strings.Contains(doc, `5\%`) {
		t.Errorf("engine received %q", doc)
	}
}

func TestEngineCells_Error(t *testing.T) {
	t.Parallel()

	cells := &EngineCells{Engine: failingEngine()}
	if _, err := cells.RenderCell(context.Background(), "x"); !errors.Is(err, ErrParseFailure) {
		t.Errorf("RenderCell() error = %v, want ErrParseFailure", err)
	}
}

func TestColumnCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		colSpec string
		raw     string
		want    int
	}{
		{"letters", "ll", "a&b", 2},
		{"rules ignored", "|l|c|r|", "a", 3},
		{"brace arguments ignored", "|p{3cm}|c|", "x", 2},
		{"first row wider than spec", "l", "a&b&c", 3},
		{"first row after rule", "", "\\hline\\\\a&b\\\\", 2},
		{"no spec no rows", "", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ColumnCount(tt.colSpec, tt.raw); got != tt.want {
				t.Errorf("ColumnCount(%q, %q) = %d, want %d", tt.colSpec, tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitCells(t *testing.T) {
	t.Parallel()

	got := splitCells(`a & \textbf{b&c} & d\&e`)
	want := []string{"a ", ` \textbf{b&c} `, ` d\&e`}
	if len(got) != len(want) {
		t.Fatalf("splitCells() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, got[i], want[i])
		}
	}
}
