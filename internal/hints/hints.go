// Package hints turns common failures into short follow-up advice.
//
// Every helper returns either "" or a single line of the form
// "\n  hint: <advice>", ready to be appended to an error message.
package hints

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alnah/go-tex2html/internal/fileutil"
)

const prefix = "\n  hint: "

// ciVariables are set by the CI systems we know about.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsInContainer reports whether the process runs in a Docker-like
// container. It is a variable so tests can replace it.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a known CI variable is set.
func InCI() bool {
	for _, name := range ciVariables {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect advises on Chrome launch failures during PDF export.
func ForBrowserConnect() string {
	var advice []string
	sandboxed := os.Getenv("ROD_NO_SANDBOX") != "1"
	if sandboxed && (InCI() || IsInContainer()) {
		advice = append(advice, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		advice = append(advice, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	return formatHints(advice)
}

// ForPandocMissing explains how to get pandoc on this platform.
func ForPandocMissing() string {
	var install string
	switch runtime.GOOS {
	case "darwin":
		install = "install pandoc with `brew install pandoc`"
	case "linux":
		install = "install pandoc with your package manager (e.g. `apt install pandoc`)"
	default:
		install = "install pandoc (https://pandoc.org/installing.html)"
	}
	return formatHints([]string{install, "or point --pandoc at the binary"})
}

// ForParseFailure points at the debug dump of what pandoc received.
func ForParseFailure() string {
	return line("rerun with --debug to inspect the normalized LaTeX sent to pandoc")
}

func ForTimeout() string {
	return line("for large documents, use --timeout flag")
}

// ForConfigNotFound suggests --config, plus the per-user location when it
// is among the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if filepath.Base(filepath.Dir(p)) == "go-tex2html" {
			return line(hint + " or create " + p)
		}
	}
	return line(hint)
}

func ForOutputDirectory() string {
	return line("check parent directory exists and is writable")
}

// ForPostNotFound lists the slugs that do exist.
func ForPostNotFound(available []string) string {
	if len(available) == 0 {
		return line("the posts directory is empty")
	}
	return line("available: " + strings.Join(available, ", "))
}

func line(advice string) string {
	if advice == "" {
		return ""
	}
	return prefix + advice
}

func formatHints(advice []string) string {
	return line(strings.Join(advice, "; "))
}
