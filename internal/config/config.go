// Package config loads tex2html settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-tex2html/internal/dateutil"
	"github.com/alnah/go-tex2html/internal/fileutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Defaults applied to fields left empty in the file.
const (
	DefaultPostsDir   = "posts"
	DefaultOutputDir  = "public"
	DefaultAddr       = ":8080"
	DefaultPandoc     = "pandoc"
	DefaultMath       = "mathml"
	DefaultTimeout    = "30s"
	DefaultDateFormat = "long"
	DefaultLang       = "en"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultCacheSize  = 128
)

// MaxTimeout caps render.timeout and server timeouts.
const MaxTimeout = 10 * time.Minute

var (
	mathMethods = []string{"mathml", "katex", "mathjax", "plain"}
	logLevels   = []string{"debug", "info", "warn", "error"}
	logFormats  = []string{"text", "json"}
)

// Config holds all settings for rendering, building and serving posts.
type Config struct {
	Posts  PostsConfig  `yaml:"posts"`
	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`
	Server ServerConfig `yaml:"server"`
	Site   SiteConfig   `yaml:"site"`
	Assets AssetsConfig `yaml:"assets"`
	Log    LogConfig    `yaml:"log"`
}

// PostsConfig locates the .tex sources.
type PostsConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig controls the static build.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	PDF bool   `yaml:"pdf"` // also export each post to PDF
}

// RenderConfig controls the pandoc invocation and normalization.
type RenderConfig struct {
	Pandoc            string   `yaml:"pandoc"` // binary name or path
	Math              string   `yaml:"math"`   // mathml, katex, mathjax, plain
	Timeout           string   `yaml:"timeout"`
	ExtraArgs         []string `yaml:"extraArgs"`
	AllowEnvironments []string `yaml:"allowEnvironments"`
	DateFormat        string   `yaml:"dateFormat"` // used for \today
	Workers           int      `yaml:"workers"`    // 0 = auto
}

// ServerConfig controls the HTTP shell.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	CacheSize int    `yaml:"cacheSize"` // rendered fragments kept in memory
}

// SiteConfig holds page-level metadata.
type SiteConfig struct {
	Title   string `yaml:"title"`
	Lang    string `yaml:"lang"`
	BaseDir string `yaml:"baseDir"` // resolves image paths for PDF export
}

// AssetsConfig overrides the embedded stylesheet and page template.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded assets
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	setDefault(&c.Posts.Dir, DefaultPostsDir)
	setDefault(&c.Output.Dir, DefaultOutputDir)
	setDefault(&c.Render.Pandoc, DefaultPandoc)
	setDefault(&c.Render.Math, DefaultMath)
	setDefault(&c.Render.Timeout, DefaultTimeout)
	setDefault(&c.Render.DateFormat, DefaultDateFormat)
	setDefault(&c.Server.Addr, DefaultAddr)
	setDefault(&c.Site.Lang, DefaultLang)
	setDefault(&c.Log.Level, DefaultLogLevel)
	setDefault(&c.Log.Format, DefaultLogFormat)
	if c.Server.CacheSize == 0 {
		c.Server.CacheSize = DefaultCacheSize
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Validate checks enumerations, durations and numeric ranges.
// Called by LoadConfig; library users building a Config by hand call it themselves.
func (c *Config) Validate() error {
	if !slices.Contains(mathMethods, strings.ToLower(c.Render.Math)) {
		return fmt.Errorf("%w: render.math %q (must be one of %s)", ErrInvalidConfig, c.Render.Math, strings.Join(mathMethods, ", "))
	}
	timeout, err := time.ParseDuration(c.Render.Timeout)
	if err != nil {
		return fmt.Errorf("%w: render.timeout: %v", ErrInvalidConfig, err)
	}
	if timeout <= 0 || timeout > MaxTimeout {
		return fmt.Errorf("%w: render.timeout must be between 0 and %s, got %s", ErrInvalidConfig, MaxTimeout, timeout)
	}
	if _, err := dateutil.Layout(c.Render.DateFormat); err != nil {
		return fmt.Errorf("%w: render.dateFormat: %v", ErrInvalidConfig, err)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: render.workers must be >= 0, got %d", ErrInvalidConfig, c.Render.Workers)
	}
	for _, env := range c.Render.AllowEnvironments {
		if env == "" || strings.ContainsAny(env, "{}\\ ") {
			return fmt.Errorf("%w: render.allowEnvironments: invalid name %q", ErrInvalidConfig, env)
		}
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("%w: server.cacheSize must be >= 0, got %d", ErrInvalidConfig, c.Server.CacheSize)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%w: log.level %q (must be one of %s)", ErrInvalidConfig, c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Timeout returns render.timeout as a duration, DefaultTimeout when unparseable.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// SlogLevel maps log.level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from a file path or config name.
// A value containing a path separator is read as a file; anything else is
// looked up by name in the current directory, then ~/.config/go-tex2html/.
// A missing file is an error, never a silent fallback to defaults.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SearchPaths lists the files LoadConfig tries for a config name.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, "go-tex2html", name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
