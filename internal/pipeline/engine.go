package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-tex2html/internal/process"
)

// Sentinel errors for the external render step.
var (
	// ErrRenderUnavailable means the engine could not be acquired.
	ErrRenderUnavailable = errors.New("render engine unavailable")

	// ErrParseFailure means the engine rejected the document.
	ErrParseFailure = errors.New("latex parse failed")
)

// Math rendering methods understood by PandocEngine.
const (
	MathMathML  = "mathml"
	MathKaTeX   = "katex"
	MathMathJax = "mathjax"
	MathPlain   = "plain"
)

// DefaultPandocBinary is looked up in PATH when EngineOptions.Binary is empty.
const DefaultPandocBinary = "pandoc"

// Engine turns a complete LaTeX document into an HTML fragment.
type Engine interface {
	Render(ctx context.Context, document string) (string, error)
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The child runs in its
// own process group, which is killed when ctx is done.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, stdin string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	process.Isolate(cmd)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// EngineOptions configures how pandoc is invoked.
type EngineOptions struct {
	// Binary is the pandoc executable name or path.
	Binary string

	// Math selects the math output: mathml (default), katex, mathjax or plain.
	Math string

	// ExtraArgs are appended after the generated arguments.
	ExtraArgs []string

	// Timeout bounds a single invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

func (o EngineOptions) binary() string {
	if o.Binary == "" {
		return DefaultPandocBinary
	}
	return o.Binary
}

// Args returns the pandoc arguments for a LaTeX to HTML5 conversion.
func (o EngineOptions) Args() []string {
	args := []string{"-f", "latex", "-t", "html5"}
	switch o.Math {
	case "", MathMathML:
		args = append(args, "--mathml")
	case MathKaTeX:
		args = append(args, "--katex")
	case MathMathJax:
		args = append(args, "--mathjax")
	case MathPlain:
	}
	return append(args, o.ExtraArgs...)
}

// PandocEngine renders documents by piping them through the pandoc CLI.
type PandocEngine struct {
	Runner  CommandRunner
	Path    string
	Version string
	Options EngineOptions
}

// Compile-time interface check.
var _ Engine = (*PandocEngine)(nil)

// Render runs pandoc on document. A non-zero exit is reported as
// ErrParseFailure with pandoc's stderr; a vanished binary as ErrRenderUnavailable.
func (e *PandocEngine) Render(ctx context.Context, document string) (string, error) {
	if e.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Options.Timeout)
		defer cancel()
	}

	path := e.Path
	if path == "" {
		path = e.Options.binary()
	}

	stdout, stderr, err := e.Runner.Run(ctx, document, path, e.Options.Args()...)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrParseFailure, ctxErr)
		}
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrParseFailure, msg)
	}
	return stdout, nil
}

// Precompiled regex patterns for document wrapping.
var (
	usepackageLine = regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{[^}]+\}[ \t]*\n?`)
	pandocVersion  = regexp.MustCompile(`^pandoc(?:\.exe)?\s+(\S+)`)
)

// Wrap turns a text body into a complete article document. Text that already
// contains \begin{document} is returned unchanged. \usepackage lines are
// hoisted into the preamble.
func Wrap(text string) string {
	if strings.Contains(text, `\begin{document}`) {
		return text
	}

	packages := usepackageLine.FindAllString(text, -1)
	body := usepackageLine.ReplaceAllString(text, "")

	var b strings.Builder
	b.WriteString("\\documentclass{article}\n")
	for _, p := range packages {
		b.WriteString(strings.TrimRight(p, " \t\n"))
		b.WriteByte('\n')
	}
	b.WriteString("\\begin{document}\n")
	b.WriteString(body)
	b.WriteString("\n\\end{document}")
	return b.String()
}

// LoadFunc acquires an engine.
type LoadFunc func(ctx context.Context) (Engine, error)

// EngineLoader memoizes engine acquisition. The first successful load is
// returned to every later caller; a failed load is not remembered, so the
// next Acquire tries again.
type EngineLoader struct {
	mu     sync.Mutex
	load   LoadFunc
	engine Engine
}

// NewEngineLoader creates a loader around load.
func NewEngineLoader(load LoadFunc) *EngineLoader {
	return &EngineLoader{load: load}
}

// StaticLoader returns a loader that always hands out engine.
func StaticLoader(engine Engine) *EngineLoader {
	return &EngineLoader{engine: engine}
}

// Acquire returns the shared engine, loading it on first use.
// Errors wrap ErrRenderUnavailable.
func (l *EngineLoader) Acquire(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}
	if l.load == nil {
		return nil, fmt.Errorf("%w: no engine configured", ErrRenderUnavailable)
	}

	engine, err := l.load(ctx)
	if err != nil {
		if errors.Is(err, ErrRenderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}
	l.engine = engine
	return engine, nil
}

// Loaded reports whether an engine has been acquired.
func (l *EngineLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}

// PandocLoader resolves the pandoc binary and probes its version.
type PandocLoader struct {
	Runner   CommandRunner
	Options  EngineOptions
	LookPath func(file string) (string, error)
}

// Load implements LoadFunc.
func (p *PandocLoader) Load(ctx context.Context) (Engine, error) {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	runner := p.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}

	path, err := lookPath(p.Options.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}

	stdout, stderr, err := runner.Run(ctx, "", path, "--version")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderUnavailable, strings.TrimSpace(stderr), err)
	}

	version := ""
	if m := pandocVersion.FindStringSubmatch(strings.TrimSpace(stdout)); m != nil {
		version = m[1]
	}

	return &PandocEngine{
		Runner:  runner,
		Path:    path,
		Version: version,
		Options: p.Options,
	}, nil
}
