package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2html <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render one LaTeX document to HTML (or PDF)")
	fmt.Fprintln(w, "  build      Render every post into a static site")
	fmt.Fprintln(w, "  serve      Serve posts, rendering them on request")
	fmt.Fprintln(w, "  doctor     Check pandoc, Chrome and the environment")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'tex2html help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging and per-post timing")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
	fmt.Fprintln(w)
}

func printEngineUsage(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --pandoc <path>       pandoc binary name or path")
	fmt.Fprintln(w, "      --math <s>            Math: mathml, katex, mathjax, plain")
	fmt.Fprintln(w, "      --timeout <d>         Per-document timeout (e.g. 30s, 2m)")
	fmt.Fprintln(w, "      --date-format <s>     Format for \\today: iso, european, us, long, or tokens")
	fmt.Fprintln(w, "      --assets <dir>        Directory overriding the stylesheet and templates")
	fmt.Fprintln(w, "      --allow-env <names>   Extra environments kept during normalization")
	fmt.Fprintln(w, "      --pandoc-arg <arg>    Extra pandoc argument (repeatable)")
	fmt.Fprintln(w)
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2html render [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render one LaTeX document. The HTML fragment is written to stdout.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    .tex file, post name from the posts directory, or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file")
	fmt.Fprintln(w, "      --page                Standalone page with the stylesheet inlined")
	fmt.Fprintln(w, "      --pdf                 Export to PDF (requires --output)")
	fmt.Fprintln(w, "      --title <s>           Page title (default: from \\title)")
	fmt.Fprintln(w, "      --debug               Include the normalized source and raw tables")
	fmt.Fprintln(w, "      --posts <dir>         Posts directory for name lookups")
	fmt.Fprintln(w)
	printEngineUsage(w)
	printCommonUsage(w)
}

func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2html build [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render every post into a static site: one page per post, index.html,")
	fmt.Fprintln(w, "posts.json and the stylesheet.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "      --posts <dir>         Posts directory")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "      --pdf                 Also export every post to PDF")
	fmt.Fprintln(w, "      --site-dir <dir>      Directory /images/... resolve against for PDF")
	fmt.Fprintln(w)
	printEngineUsage(w)
	printCommonUsage(w)
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2html serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve posts over HTTP, rendering each on request.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "      --posts <dir>         Posts directory")
	fmt.Fprintln(w, "      --cache-size <n>      Rendered posts kept in memory (0 disables)")
	fmt.Fprintln(w)
	printEngineUsage(w)
	printCommonUsage(w)
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2html doctor [--json] [--pandoc <path>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that pandoc and Chrome can be found and the environment is usable.")
}

// runHelp prints help for a command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "build":
		printBuildUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		fmt.Fprintln(env.Stdout, "Usage: tex2html config [-c <name>]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Print the effective configuration as YAML.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: tex2html version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: tex2html help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
