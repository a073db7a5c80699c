//go:build integration

package tex2html

// Notes:
// - Runs Converter against the pandoc on PATH; skipped when it is missing
// - PDF export additionally needs Chrome and is skipped without it

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

const integrationTimeout = 60 * time.Second

func newPandocConverter(t *testing.T) *Converter {
	t.Helper()

	if _, err := exec.LookPath("pandoc"); err != nil {
		t.Skip("pandoc not installed")
	}
	conv, err := NewConverter(WithTimeout(integrationTimeout))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = conv.Close() })
	return conv
}

const integrationPost = `\documentclass{article}
\usepackage{graphicx}
\title{Graph Notes}
\author{Ada}
\date{2024-03-05}
\begin{document}
\maketitle

Edges $e_1$ and names like node_id.

\begin{figure}[h]
\centering
\includegraphics[width=0.8\textwidth]{img/graph.png}
\caption{A small graph}
\end{figure}

\begin{tabular}{ll}
\textbf{Name} & \textbf{Age} \\
Alice & 30 \\
\end{tabular}

\begin{tikzpicture}\draw (0,0) -- (1,1);\end{tikzpicture}
\end{document}`

func TestConverter_Convert_Integration(t *testing.T) {
	conv := newPandocConverter(t)

	res, err := conv.Convert(context.Background(), Input{Source: integrationPost, Debug: true})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	for _, want := range []string{
		`class="post-maketitle"`, ">Graph Notes</div>", ">Ada</div>",
		`src="img/graph.png"`, `max-width:80%`, `class="latex-caption"`, "A small graph",
		`<div class="latex-table">`, "Alice",
		"node_id",
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("HTML missing %s:\n%s", want, res.HTML)
		}
	}
	if strings.Contains(res.HTML, "tikzpicture") || strings.Contains(res.HTML, `\draw`) {
		t.Errorf("unsupported environment leaked into HTML:\n%s", res.HTML)
	}
	if len(res.Tables) != 1 || res.Normalized == "" {
		t.Errorf("debug data: %d tables, normalized %d bytes", len(res.Tables), len(res.Normalized))
	}
	if !conv.EngineReady() {
		t.Error("EngineReady() = false after a successful render")
	}
}

func TestConverter_Convert_ParseFailure_Integration(t *testing.T) {
	conv := newPandocConverter(t)

	_, err := conv.Convert(context.Background(), Input{Source: `\begin{document}\textbf{unclosed\end{document}`})
	if err == nil {
		t.Skip("this pandoc version accepts the unbalanced brace")
	}
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("error = %v, want ErrParseFailure", err)
	}
}

func TestConverter_ExportPDF_Integration(t *testing.T) {
	conv := newPandocConverter(t)
	if _, found := launcher.LookPath(); !found {
		t.Skip("Chrome not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	res, err := conv.Convert(ctx, Input{Source: "\\title{PDF}\n\\maketitle\nHello."})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	pdf, err := conv.ExportPDF(ctx, res, PageMeta{Title: "PDF"})
	if err != nil {
		t.Fatalf("ExportPDF() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}
