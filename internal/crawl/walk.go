// Package crawl finds the files in a source tree worth identifying.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/logger"
)

// DefaultMaxFileSize bounds the files considered; license texts are small.
const DefaultMaxFileSize = 1 << 20

// sniffLen is how much of a file is inspected for binary content.
const sniffLen = 8 << 10

// ErrNotDir is returned when the crawl root is not a directory.
var ErrNotDir = errors.New("not a directory")

// Walker lists candidate files under a root.
type Walker struct {
	FollowLinks   bool
	Globs         []string
	NoIgnore      bool
	IncludeVendor bool
	MaxFileSize   int64
	Logger        *slog.Logger
}

// Stats counts what a walk skipped.
type Stats struct {
	Files   int
	Ignored int
	Vendor  int
	Binary  int
	Large   int
}

// Walk returns the paths of candidate files relative to root, sorted.
// Malformed globs are rejected with a *config.Error before the tree is read.
func (w *Walker) Walk(ctx context.Context, root string) ([]string, Stats, error) {
	if err := config.ValidateGlobs(w.Globs); err != nil {
		return nil, Stats{}, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, Stats{}, fmt.Errorf("%s: %w", root, ErrNotDir)
	}

	c := &crawler{
		w:       w,
		root:    root,
		maxSize: w.MaxFileSize,
		visited: make(map[string]bool),
		log:     w.Logger,
	}
	if c.maxSize <= 0 {
		c.maxSize = DefaultMaxFileSize
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	if !w.NoIgnore {
		m, err := loadIgnores(root)
		if err != nil {
			return nil, Stats{}, err
		}
		c.ignore = m
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		c.visited[resolved] = true
	}

	if err := c.dir(ctx, ""); err != nil {
		return nil, c.stats, err
	}
	sort.Strings(c.files)
	c.stats.Files = len(c.files)
	c.log.Debug("crawl finished", "root", root, "files", c.stats.Files,
		"ignored", c.stats.Ignored, "vendor", c.stats.Vendor,
		"binary", c.stats.Binary, "large", c.stats.Large)
	return c.files, c.stats, nil
}

type crawler struct {
	w       *Walker
	root    string
	maxSize int64
	ignore  gitignore.Matcher
	visited map[string]bool
	files   []string
	stats   Stats
	log     *slog.Logger
}

func (c *crawler) dir(ctx context.Context, rel string) error {
	entries, err := os.ReadDir(filepath.Join(c.root, rel))
	if err != nil {
		if rel == "" {
			return fmt.Errorf("read root: %w", err)
		}
		c.log.Warn("skipping unreadable directory", "path", rel, "error", err)
		return nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(rel, name)
		slashed := filepath.ToSlash(path)

		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if !c.w.FollowLinks {
				continue
			}
			target, err := os.Stat(filepath.Join(c.root, path))
			if err != nil {
				c.log.Warn("skipping broken link", "path", slashed, "error", err)
				continue
			}
			isDir = target.IsDir()
		} else if !isDir && !e.Type().IsRegular() {
			continue
		}

		if isDir {
			if !c.w.IncludeVendor && enry.IsVendor(slashed+"/") {
				c.stats.Vendor++
				continue
			}
			if c.ignored(slashed, true) {
				c.stats.Ignored++
				continue
			}
			if c.w.FollowLinks && c.seen(path) {
				continue
			}
			if err := c.dir(ctx, path); err != nil {
				return err
			}
			continue
		}

		if !c.w.IncludeVendor && enry.IsVendor(slashed) {
			c.stats.Vendor++
			continue
		}
		if c.ignored(slashed, false) || !c.globbed(slashed) {
			c.stats.Ignored++
			continue
		}
		if c.candidate(path) {
			c.files = append(c.files, path)
		}
	}
	return nil
}

// seen records a directory's real path and reports whether it was already walked.
func (c *crawler) seen(rel string) bool {
	resolved, err := filepath.EvalSymlinks(filepath.Join(c.root, rel))
	if err != nil {
		return true
	}
	if c.visited[resolved] {
		return true
	}
	c.visited[resolved] = true
	return false
}

func (c *crawler) ignored(slashed string, isDir bool) bool {
	if c.ignore == nil {
		return false
	}
	return c.ignore.Match(strings.Split(slashed, "/"), isDir)
}

func (c *crawler) globbed(slashed string) bool {
	if len(c.w.Globs) == 0 {
		return true
	}
	for _, g := range c.w.Globs {
		if ok, _ := doublestar.Match(g, slashed); ok {
			return true
		}
	}
	return false
}

func (c *crawler) candidate(rel string) bool {
	path := filepath.Join(c.root, rel)
	info, err := os.Stat(path)
	if err != nil {
		c.log.Warn("skipping unreadable file", "path", rel, "error", err)
		return false
	}
	if info.Size() == 0 {
		return false
	}
	if info.Size() > c.maxSize {
		c.stats.Large++
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		// Identification reports the read error for this path.
		return true
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)
	if enry.IsBinary(head[:n]) {
		c.stats.Binary++
		return false
	}
	return true
}

// Language names the programming language of a file, or "" when unknown.
func Language(path string, content []byte) string {
	return enry.GetLanguage(filepath.Base(path), content)
}
