package crawl

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFile holds extra gitignore-style patterns read from the crawl root.
const IgnoreFile = ".licensematchignore"

// loadIgnores collects .gitignore patterns from the whole tree plus the root
// IgnoreFile. Later patterns take precedence.
func loadIgnores(root string) (gitignore.Matcher, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("read gitignore: %w", err)
	}

	extra, err := readPatternFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, extra...)
	return gitignore.NewMatcher(patterns), nil
}

func readPatternFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var ps []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ps, nil
}
