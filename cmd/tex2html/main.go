// Command tex2html renders LaTeX posts to HTML through pandoc: one
// document at a time, as a static site, or on demand over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/posts"
)

// Version is set at build time via ldflags.
var Version = "dev"

// commandFunc runs a subcommand. The returned config, when non-nil, lets
// error hints look at the effective settings.
type commandFunc func(ctx context.Context, args []string, env *Environment) (*config.Config, error)

func main() {
	env := DefaultEnv()
	setMaxProcs(hasVerbose(os.Args[1:]), env.Stderr)

	ctx, stop := notifyContext(context.Background())
	code := run(ctx, os.Args[1:], env)
	stop()
	os.Exit(code)
}

// setMaxProcs configures GOMAXPROCS from the container CPU quota.
// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
// in which case Go runtime defaults apply and the program continues safely.
func setMaxProcs(verbose bool, w io.Writer) {
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(w, format+"\n", args...)
		}))
		return
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

func hasVerbose(args []string) bool {
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			return true
		}
	}
	return false
}

// run dispatches to a subcommand and returns the process exit code.
// A first argument ending in .tex is shorthand for "render <file>".
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	name, rest := args[0], args[1:]
	var cmd commandFunc
	switch name {
	case "render":
		cmd = runRender
	case "build":
		cmd = runBuild
	case "serve":
		cmd = runServe
	case "doctor":
		return runDoctorCmd(rest, env)
	case "config":
		return runConfigCmd(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "tex2html %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(rest, env)
		return ExitSuccess
	default:
		if !looksLikeTeX(name) {
			fmt.Fprintf(env.Stderr, "Unknown command: %s\n", name)
			printUsage(env.Stderr)
			return ExitUsage
		}
		name, cmd, rest = "render", runRender, args
	}

	cfg, err := cmd(ctx, rest, env)
	if errors.Is(err, flag.ErrHelp) {
		runHelp([]string{name}, env)
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, errorMessage(err, cfg))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

func looksLikeTeX(arg string) bool {
	return strings.HasSuffix(strings.ToLower(arg), posts.Extension)
}

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(args []string, env *Environment) int {
	var common commonFlags
	fs := newFlagSet("config")
	addCommonFlags(fs, &common)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			runHelp([]string{"config"}, env)
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, parseError(err))
		return ExitUsage
	}

	cfg, err := loadConfig(common, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, errorMessage(err, nil))
		return exitCodeFor(err)
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitGeneral
	}
	_, _ = env.Stdout.Write(out)
	return ExitSuccess
}
