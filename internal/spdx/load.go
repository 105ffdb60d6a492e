// Package spdx builds license stores from SPDX license-list-data, from plain
// text directories, and from the embedded builtin set.
package spdx

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dsablic/licensematch/internal/store"
	"github.com/dsablic/licensematch/internal/text"
)

// Summary counts what a load added to the store.
type Summary struct {
	Licenses   int `json:"licenses"`
	Headers    int `json:"headers"`
	Alternates int `json:"alternates"`
	Aliases    int `json:"aliases"`
	Skipped    int `json:"skipped"`
}

// details is the subset of an SPDX json/details/<id>.json document we use.
type details struct {
	ID         string `json:"licenseId"`
	Name       string `json:"name"`
	Text       string `json:"licenseText"`
	Header     string `json:"standardLicenseHeader"`
	Deprecated bool   `json:"isDeprecatedLicenseId"`
}

// LoadJSONDir loads every SPDX details document under dir into st. dir may be
// a license-list-data checkout or its json/details directory. Deprecated ids
// whose text matches a live license exactly become aliases of it; other
// deprecated ids are skipped.
func LoadJSONDir(dir string, st *store.Store) (Summary, error) {
	if sub := filepath.Join(dir, "json", "details"); isDir(sub) {
		dir = sub
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return Summary{}, fmt.Errorf("list spdx documents: %w", err)
	}
	if len(paths) == 0 {
		return Summary{}, fmt.Errorf("no SPDX license documents in %s", dir)
	}
	slices.Sort(paths)

	var sum Summary
	var deprecated []details
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", p, err)
		}
		var d details
		if err := json.Unmarshal(data, &d); err != nil {
			return sum, fmt.Errorf("parse %s: %w", p, err)
		}
		if d.ID == "" || strings.TrimSpace(d.Text) == "" {
			sum.Skipped++
			continue
		}
		if d.Deprecated {
			deprecated = append(deprecated, d)
			continue
		}
		if err := st.AddLicense(d.ID, d.Text); err != nil {
			if errors.Is(err, store.ErrInvalidEntry) {
				sum.Skipped++
				continue
			}
			return sum, err
		}
		sum.Licenses++
		if strings.TrimSpace(d.Header) != "" {
			if err := st.AddHeader(d.ID, d.Header); err != nil {
				return sum, err
			}
			sum.Headers++
		}
	}

	for _, d := range deprecated {
		id, ok := exactMatch(st, text.New(d.Text))
		if !ok {
			sum.Skipped++
			continue
		}
		if err := st.AddAliases(id, d.ID); err != nil {
			return sum, err
		}
		sum.Aliases++
	}
	return sum, nil
}

// exactMatch finds the lexicographically first license whose canonical text
// has the same fingerprint as t.
func exactMatch(st *store.Store, t *text.Text) (string, bool) {
	for _, id := range st.Licenses() {
		e, _ := st.Get(id)
		if e.Original.Score(t) == 1 {
			return id, true
		}
	}
	return "", false
}

var formName = regexp.MustCompile(`^(.+?)\.(header|alternate)(?:\.(\d+))?\.txt$`)

type formFile struct {
	id    string
	kind  store.VariantKind
	order int
	name  string
}

// LoadFS loads a directory of plain texts: ID.txt holds the canonical text,
// ID.header[.N].txt and ID.alternate[.N].txt hold extra forms, and ID.aliases
// lists alternate identifiers one per line.
func LoadFS(fsys fs.FS, st *store.Store) (Summary, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return Summary{}, fmt.Errorf("read license dir: %w", err)
	}

	var originals, aliases []string
	var forms []formFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case formName.MatchString(name):
			m := formName.FindStringSubmatch(name)
			f := formFile{id: m[1], kind: store.Header, name: name}
			if m[2] == "alternate" {
				f.kind = store.Alternate
			}
			if m[3] != "" {
				f.order, _ = strconv.Atoi(m[3])
			}
			forms = append(forms, f)
		case strings.HasSuffix(name, ".txt"):
			originals = append(originals, name)
		case strings.HasSuffix(name, ".aliases"):
			aliases = append(aliases, name)
		}
	}

	var sum Summary
	for _, name := range originals {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", name, err)
		}
		if err := st.AddLicense(strings.TrimSuffix(name, ".txt"), string(data)); err != nil {
			return sum, fmt.Errorf("load %s: %w", name, err)
		}
		sum.Licenses++
	}

	slices.SortFunc(forms, func(a, b formFile) int {
		return cmp.Or(
			strings.Compare(a.id, b.id),
			cmp.Compare(a.kind, b.kind),
			cmp.Compare(a.order, b.order),
		)
	})
	for _, f := range forms {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", f.name, err)
		}
		if f.kind == store.Header {
			err = st.AddHeader(f.id, string(data))
			sum.Headers++
		} else {
			err = st.AddAlternate(f.id, string(data))
			sum.Alternates++
		}
		if err != nil {
			return sum, fmt.Errorf("load %s: %w", f.name, err)
		}
	}

	for _, name := range aliases {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", name, err)
		}
		var list []string
		for _, l := range strings.Split(string(data), "\n") {
			if l = strings.TrimSpace(l); l != "" && !strings.HasPrefix(l, "#") {
				list = append(list, l)
			}
		}
		if err := st.AddAliases(strings.TrimSuffix(name, ".aliases"), list...); err != nil {
			return sum, fmt.Errorf("load %s: %w", name, err)
		}
		sum.Aliases += len(list)
	}
	return sum, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
