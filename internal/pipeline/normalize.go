package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)

	// Runs of whitespace inside \includegraphics options
	whitespaceRun = regexp.MustCompile(`\s+`)

	// Math spans left untouched by underscore escaping. The first
	// alternative consumes \\ and \$ so an escaped dollar never delimits
	// math; $$ is tried before $.
	mathSpan = regexp.MustCompile(`(?s)\\[\\$]|\$\$(?:\\.|[^\\])*?\$\$|\$(?:\\.|[^$\\])*\$|\\\[.*?\\\]|\\\(.*?\\\)`)

	// Unescaped underscore, with the preceding run of backslashes captured
	underscore = regexp.MustCompile(`(\\*)_`)
)

// unicodeDashes maps typographic hyphens and dashes to ASCII and drops soft hyphens.
var unicodeDashes = strings.NewReplacer(
	"\u2010", "-", "\u2011", "-", "\u2012", "-",
	"\u2013", "-", "\u2014", "-", "\u2015", "-",
	"\u00ad", "",
)

// DefaultAllowedEnvironments lists the environments that survive
// unsupported-environment stripping.
var DefaultAllowedEnvironments = []string{
	"align", "align*",
	"equation", "equation*",
	"cases",
	"table", "table*",
	"tabular", "tabular*", "tabularx", "longtable",
	"center",
}

// generatedEnvironments are produced by the normalizer itself and must
// survive stripping.
var generatedEnvironments = []string{"aligned"}

var (
	floatEnvs   = nameIn("figure", "figure*", "table", "table*")
	tabularEnvs = nameIn("tabular", "tabular*", "tabularx", "longtable")
	mathEnvs    = nameIn("equation", "equation*", "align", "align*", "equations")
)

// TeXPreprocessor defines the contract for turning raw TeX into parser-ready
// text plus the tokens lifted out of it.
type TeXPreprocessor interface {
	Normalize(ctx context.Context, src string, ids IDGenerator) (string, TokenTable)
}

// Normalizer rewrites a supported subset of LaTeX so the external parser
// can consume it. The zero value is ready to use.
type Normalizer struct {
	// AllowEnvironments extends DefaultAllowedEnvironments.
	AllowEnvironments []string

	// Today renders \today inside \date. Nil uses the current date in
	// "January 2, 2006" form.
	Today func() string
}

// Normalize applies all rewrites in order. Each step works on the output of
// the previous one. A nil ids uses a fresh CounterIDs.
func (n *Normalizer) Normalize(ctx context.Context, src string, ids IDGenerator) (string, TokenTable) {
	if ids == nil {
		ids = &CounterIDs{}
	}
	tk := &tokenizer{ids: ids, tokens: TokenTable{}}

	if ctx.Err() != nil {
		return src, tk.tokens
	}

	out := normalizeLineEndings(src)
	out = n.replaceTitle(stripDocumentCommands(out), tk)
	out = unicodeDashes.Replace(out)
	out = replaceControlWord(out, "centering", func() string { return "" })
	out = tokenizeImages(out, tk)
	out = unwrapFloats(out, tk)
	out = tokenizeTabulars(out, tk)
	out = normalizeMath(out)
	out = StripUnsupportedEnvironments(out, n.allowed())
	out = EscapeUnderscores(out)
	out = compressBlankLines(out)
	return out, tk.tokens
}

func (n *Normalizer) allowed() func(string) bool {
	names := make([]string, 0, len(DefaultAllowedEnvironments)+len(generatedEnvironments)+len(n.AllowEnvironments))
	names = append(names, DefaultAllowedEnvironments...)
	names = append(names, generatedEnvironments...)
	names = append(names, n.AllowEnvironments...)
	return nameIn(names...)
}

func (n *Normalizer) today() string {
	if n.Today != nil {
		return n.Today()
	}
	return time.Now().Format("January 2, 2006")
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// stripDocumentCommands removes preamble and document-level commands that
// the wrapper re-creates or that have no HTML counterpart.
// \usepackage is kept so the wrapper can hoist it.
func stripDocumentCommands(s string) string {
	s = removeCommand(s, "documentclass", 1)
	s = strings.ReplaceAll(s, `\begin{document}`, "")
	s = strings.ReplaceAll(s, `\end{document}`, "")
	s = replaceControlWord(s, "tableofcontents", func() string { return "" })
	s = removeCommand(s, "bibliographystyle", 1)
	s = removeCommand(s, "bibliography", 1)
	return s
}

// captureArg returns the trimmed argument of the first \name{...}, or "".
func captureArg(s, name string) string {
	arg, _ := CommandArgument(s, name)
	return arg
}

// CommandArgument returns the trimmed, brace-balanced argument of the first
// \name{...} in s. The bool reports whether the command was found.
func CommandArgument(s, name string) (string, bool) {
	cmd, ok := firstCommand(s, name, 1)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(cmd.args[0]), true
}

// replaceTitle captures \title, \author and \date, swaps \maketitle for a
// title token and drops the declarations.
func (n *Normalizer) replaceTitle(s string, tk *tokenizer) string {
	payload := TitlePayload{
		Title:  captureArg(s, "title"),
		Author: captureArg(s, "author"),
		Date:   captureArg(s, "date"),
	}
	if strings.Contains(payload.Date, `\today`) {
		payload.Date = strings.TrimSpace(replaceControlWord(payload.Date, "today", n.today))
	}

	s = replaceControlWord(s, "maketitle", func() string {
		return tk.emit(KindTitle, payload)
	})

	s = removeCommand(s, "title", 1)
	s = removeCommand(s, "author", 1)
	s = removeCommand(s, "date", 1)
	return s
}

// tokenizeImages replaces every \includegraphics with an image token.
func tokenizeImages(s string, tk *tokenizer) string {
	return rewriteCommand(s, "includegraphics", 1, func(cmd command) string {
		return tk.emit(KindImage, ImagePayload{
			Path: cmd.args[0],
			Opts: whitespaceRun.ReplaceAllString(cmd.opt, " "),
		})
	})
}

// unwrapFloats flattens figure and table floats to their content followed by
// a caption token. The content keeps flowing through the external parser.
func unwrapFloats(s string, tk *tokenizer) string {
	return rewriteEnvironments(s, floatEnvs, func(env environment) string {
		body := env.body(s)
		if _, end, ok := readOptional(body, 0); ok {
			body = body[end:]
		}

		var caption string
		if cmd, ok := firstCommand(body, "caption", 1); ok {
			caption = strings.TrimSpace(cmd.args[0])
			body = body[:cmd.start] + body[cmd.end:]
		}
		body = removeCommand(body, "label", 1)

		capToken := ""
		if caption != "" {
			capToken = tk.emit(KindCaption, caption)
		}
		return strings.TrimSpace(body) + "\n\n" + capToken
	})
}

// tokenizeTabulars replaces tabular environments with table tokens holding
// the column spec and the unparsed rows.
func tokenizeTabulars(s string, tk *tokenizer) string {
	return rewriteEnvironments(s, tabularEnvs, func(env environment) string {
		body := env.body(s)
		i := 0
		switch env.name {
		case "tabular*", "tabularx":
			// width argument precedes the column spec
			if _, end, ok := readGroup(body, skipSpace(body, i)); ok {
				i = end
			}
		}
		if _, end, ok := readOptional(body, skipSpace(body, i)); ok {
			i = end
		}
		colSpec, end, ok := readGroup(body, skipSpace(body, i))
		if !ok {
			return s[env.start:env.end]
		}
		return tk.emit(KindTable, TablePayload{Raw: body[end:], ColSpec: colSpec})
	})
}

// normalizeMath rewrites display math environments to \[ ... \].
func normalizeMath(s string) string {
	return rewriteEnvironments(s, mathEnvs, func(env environment) string {
		inner := strings.TrimSpace(env.body(s))
		if strings.HasPrefix(env.name, "align") && (strings.Contains(inner, "&") || strings.Contains(inner, `\\`)) {
			inner = `\begin{aligned}` + inner + `\end{aligned}`
		}
		return `\[` + inner + `\]`
	})
}

// StripUnsupportedEnvironments deletes every environment whose name is not
// accepted by allowed, including its content. Allowed environments are kept
// and their bodies are stripped recursively. Running it twice is a no-op.
func StripUnsupportedEnvironments(s string, allowed func(name string) bool) string {
	return rewriteEnvironments(s, func(string) bool { return true }, func(env environment) string {
		if !allowed(env.name) {
			return ""
		}
		return s[env.start:env.bodyStart] +
			StripUnsupportedEnvironments(env.body(s), allowed) +
			s[env.bodyEnd:env.end]
	})
}

// EscapeUnderscores escapes underscores outside math spans. Math spans are
// copied verbatim; an underscore already escaped by an odd run of
// backslashes is left alone.
func EscapeUnderscores(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range mathSpan.FindAllStringIndex(s, -1) {
		if loc[1]-loc[0] == 2 && s[loc[0]] == '\\' && (s[loc[0]+1] == '\\' || s[loc[0]+1] == '$') {
			continue
		}
		b.WriteString(escapeText(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(escapeText(s[last:]))
	return b.String()
}

func escapeText(s string) string {
	return underscore.ReplaceAllStringFunc(s, func(m string) string {
		if (len(m)-1)%2 == 1 {
			return m
		}
		return m[:len(m)-1] + `\_`
	})
}
