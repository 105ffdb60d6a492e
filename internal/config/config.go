// Package config layers licensematch settings: defaults, then a TOML file,
// then LICENSEMATCH_* environment variables. Command-line flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// DefaultCache is the cache path used when nothing else is configured.
const DefaultCache = "licensematch-cache.bin.zst"

// FileName is the project-local config file looked up in the working directory.
const FileName = "licensematch.toml"

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrInvalid matches every configuration error under errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// Error reports a rejected setting.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrInvalid, e.Err} }

// Config holds all settings.
type Config struct {
	Cache     string   `toml:"cache"`
	Floor     float64  `toml:"floor"`
	Workers   int      `toml:"workers"`
	LogLevel  string   `toml:"log_level"`
	LogFormat string   `toml:"log_format"`
	Identify  Identify `toml:"identify"`
	Crawl     Crawl    `toml:"crawl"`
}

// Identify holds defaults for the identify command.
type Identify struct {
	Optimize   bool   `toml:"optimize"`
	Diff       bool   `toml:"diff"`
	Candidates int    `toml:"candidates"`
	Format     string `toml:"format"`
	Crosscheck bool   `toml:"crosscheck"`
}

// Crawl holds defaults for the crawl command.
type Crawl struct {
	Globs         []string `toml:"globs"`
	FollowLinks   bool     `toml:"follow_links"`
	NoIgnore      bool     `toml:"no_ignore"`
	IncludeVendor bool     `toml:"include_vendor"`
	MaxFileSize   int64    `toml:"max_file_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Cache:     DefaultCache,
		Floor:     0.8,
		LogLevel:  "warn",
		LogFormat: "text",
		Identify: Identify{
			Candidates: 3,
			Format:     FormatText,
		},
		Crawl: Crawl{
			MaxFileSize: 1 << 20,
		},
	}
}

// DefaultPaths lists the config files tried, in order, when none is given.
func DefaultPaths() []string {
	paths := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "licensematch", "config.toml"))
	}
	return paths
}

// Load returns defaults overlaid with a config file. An explicit path must
// exist; otherwise the first of DefaultPaths that exists is used, if any.
func Load(path string) (Config, string, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, path, err
		}
		return cfg, path, nil
	}
	for _, p := range DefaultPaths() {
		err := cfg.readFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, p, err
		}
		return cfg, p, nil
	}
	return cfg, "", nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return c.Decode(f)
}

// Decode overlays TOML from r. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return &Error{Err: errors.New(strings.TrimSpace(strict.String()))}
		}
		return &Error{Err: err}
	}
	return nil
}

// ApplyEnv overlays LICENSEMATCH_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("LICENSEMATCH_CACHE"); v != "" {
		c.Cache = v
	}
	if v := getenv("LICENSEMATCH_FLOOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{Field: "LICENSEMATCH_FLOOR", Err: err}
		}
		c.Floor = f
	}
	if v := getenv("LICENSEMATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Field: "LICENSEMATCH_WORKERS", Err: err}
		}
		c.Workers = n
	}
	if v := getenv("LICENSEMATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LICENSEMATCH_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.Cache == "" {
		return &Error{Field: "cache", Err: errors.New("path cannot be empty")}
	}
	if c.Floor < 0 || c.Floor > 1 {
		return &Error{Field: "floor", Err: fmt.Errorf("must be within [0, 1], got %g", c.Floor)}
	}
	if c.Workers < 0 {
		return &Error{Field: "workers", Err: fmt.Errorf("cannot be negative, got %d", c.Workers)}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &Error{Field: "log_level", Err: fmt.Errorf("unknown level %q", c.LogLevel)}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &Error{Field: "log_format", Err: fmt.Errorf("unknown format %q", c.LogFormat)}
	}
	if c.Identify.Candidates < 1 {
		return &Error{Field: "identify.candidates", Err: fmt.Errorf("must be positive, got %d", c.Identify.Candidates)}
	}
	if err := ValidateFormat(c.Identify.Format); err != nil {
		return err
	}
	if c.Crawl.MaxFileSize <= 0 {
		return &Error{Field: "crawl.max_file_size", Err: fmt.Errorf("must be positive, got %d", c.Crawl.MaxFileSize)}
	}
	return ValidateGlobs(c.Crawl.Globs)
}

// ValidateFormat checks an output format name.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatMarkdown:
		return nil
	}
	return &Error{Field: "format", Err: fmt.Errorf("unknown format %q (use text, json, or markdown)", format)}
}

// ValidateGlobs checks doublestar patterns.
func ValidateGlobs(globs []string) error {
	for _, g := range globs {
		if g == "" || !doublestar.ValidatePattern(g) {
			return &Error{Field: "glob", Err: fmt.Errorf("malformed pattern %q", g)}
		}
	}
	return nil
}
