package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/hints"
)

const versionProbeTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Pandoc   toolInfo   `json:"pandoc"`
	Chrome   toolInfo   `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// toolInfo holds the detection result of an external binary.
type toolInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox *bool  `json:"sandbox,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool   `json:"temp_writable"`
	PostsDir     string `json:"posts_dir"`
	PostsFound   bool   `json:"posts_found"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	var (
		common     commonFlags
		pandoc     string
		jsonOutput bool
	)
	fs := newFlagSet("doctor")
	addCommonFlags(fs, &common)
	fs.StringVar(&pandoc, "pandoc", "", "pandoc binary name or path")
	fs.BoolVar(&jsonOutput, "json", false, "machine-readable output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printDoctorUsage(env.Stdout)
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
	if pandoc != "" {
		cfg.Render.Pandoc = pandoc
	}

	result := runDoctor(cfg)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(cfg *config.Config) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkPandoc(result, cfg.Render.Pandoc)
	checkChrome(result)
	checkEnvironment(result)
	checkSystem(result, cfg.Posts.Dir)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkPandoc locates pandoc. Rendering is impossible without it.
func checkPandoc(result *doctorResult, binary string) {
	path, err := exec.LookPath(binary)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("pandoc not found (%s)%s", binary, hints.ForPandocMissing()))
		return
	}
	result.Pandoc.Found = true
	result.Pandoc.Path = path

	version, err := probeVersion(path)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get pandoc version: %v", err))
		return
	}
	result.Pandoc.Version = version
}

// checkChrome detects Chrome/Chromium. It is only needed for PDF export,
// so a missing browser is a warning.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found: PDF export will download Chromium on first use, or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	if version, err := probeVersion(chromePath); err == nil {
		result.Chrome.Version = version
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	sandbox := result.Env.NoSandbox != "1"
	result.Chrome.Sandbox = &sandbox
}

// probeVersion runs "<bin> --version" and keeps the first line.
func probeVersion(bin string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "--version").Output() // #nosec G204 -- binary found via LookPath
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI()

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for PDF export")
	}
}

// isContainer returns whether a container was detected and which signal
// gave it away.
func isContainer() (bool, string) {
	if os.Getenv("TEX2HTML_CONTAINER") == "1" {
		return true, "TEX2HTML_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory (pandoc input, PDF staging) and
// the posts directory.
func checkSystem(result *doctorResult, postsDir string) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "tex2html-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}

	result.System.PostsDir = postsDir
	if info, err := os.Stat(postsDir); err == nil && info.IsDir() {
		result.System.PostsFound = true
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Posts directory %s does not exist", postsDir))
	}
}

// doctorSection collects the lines of one doctor section.
type doctorSection struct {
	title string
	lines []string
}

func (r *doctorSection) add(level, format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf("  [%s] ", level)+fmt.Sprintf(format, args...))
}

func (r *doctorSection) tool(t toolInfo, missingLevel string) {
	if !t.Found {
		r.add(missingLevel, "Not found")
		return
	}
	r.add("OK", "Found at %s", t.Path)
	if t.Version != "" {
		r.add("OK", "Version: %s", t.Version)
	}
}

func (r *doctorSection) write(w io.Writer) {
	fmt.Fprintln(w, r.title)
	for _, l := range r.lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}

var statusLines = map[string]string{
	"ready":    "Status: Ready to render",
	"warnings": "Status: Ready with warnings",
	"errors":   "Status: Not ready (see errors above)",
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "tex2html doctor")
	fmt.Fprintln(w)

	pandoc := &doctorSection{title: "pandoc"}
	pandoc.tool(r.Pandoc, "ERROR")

	chrome := &doctorSection{title: "Chrome/Chromium (PDF export)"}
	chrome.tool(r.Chrome, "WARN")
	if sb := r.Chrome.Sandbox; sb != nil && *sb {
		chrome.add("OK", "Sandbox: enabled")
	} else if sb != nil {
		chrome.add("OK", "Sandbox: disabled (ROD_NO_SANDBOX=1)")
	}

	env := &doctorSection{title: "Environment"}
	env.add("OK", "Platform: %s/%s", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		env.add("OK", "Container: detected (%s)", r.Env.ContainerHint)
	}
	if r.Env.CI {
		env.add("OK", "CI: detected")
	}

	sys := &doctorSection{title: "System"}
	if r.System.TempWritable {
		sys.add("OK", "Temp directory: writable")
	} else {
		sys.add("ERROR", "Temp directory: not writable")
	}
	if r.System.PostsFound {
		sys.add("OK", "Posts directory: %s", r.System.PostsDir)
	} else {
		sys.add("WARN", "Posts directory: %s missing", r.System.PostsDir)
	}

	sections := []*doctorSection{pandoc, chrome, env, sys}
	if len(r.Warnings) > 0 {
		warnings := &doctorSection{title: "Warnings:"}
		for _, msg := range r.Warnings {
			warnings.add("WARN", "%s", msg)
		}
		sections = append(sections, warnings)
	}
	if len(r.Errors) > 0 {
		errs := &doctorSection{title: "Errors:"}
		for _, msg := range r.Errors {
			errs.add("ERROR", "%s", msg)
		}
		sections = append(sections, errs)
	}
	for _, sec := range sections {
		sec.write(w)
	}

	if status, ok := statusLines[r.Status]; ok {
		fmt.Fprintln(w, status)
	}
}
