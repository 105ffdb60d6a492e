// Package store holds the license database and finds the entry a text most
// closely matches.
//
// A Store is mutated only while it is being built. Once handed to matching
// code it is read-only and safe for any number of concurrent Analyze calls.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dsablic/licensematch/internal/pool"
	"github.com/dsablic/licensematch/internal/text"
)

// DefaultFloor is the minimum score reported as a positive match.
const DefaultFloor = 0.8

var (
	ErrInvalidEntry   = errors.New("invalid license entry")
	ErrUnknownLicense = errors.New("unknown license")
)

// Store maps license identifiers to their entries.
type Store struct {
	licenses map[string]*Entry
	ids      []string          // sorted
	aliases  map[string]string // lower-cased alias or id -> id

	exec  pool.Executor
	floor float64
}

// Option configures a Store.
type Option func(*Store)

// WithExecutor sets the executor used to fan out Analyze. The default runs
// serially.
func WithExecutor(e pool.Executor) Option {
	return func(s *Store) { s.exec = e }
}

// WithFloor sets the minimum score for a positive match.
func WithFloor(floor float64) Option {
	return func(s *Store) { s.floor = floor }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		licenses: map[string]*Entry{},
		aliases:  map[string]string{},
		exec:     pool.Serial(),
		floor:    DefaultFloor,
	}
	s.Configure(opts...)
	return s
}

// Configure applies options to an existing store, typically one loaded from a
// cache. It must not be called while matches are running.
func (s *Store) Configure(opts ...Option) {
	for _, o := range opts {
		o(s)
	}
}

// Floor returns the configured confidence floor.
func (s *Store) Floor() float64 { return s.floor }

// Len returns the number of licenses.
func (s *Store) Len() int { return len(s.licenses) }

// Licenses returns the license identifiers in lexicographic order.
func (s *Store) Licenses() []string {
	return slices.Clone(s.ids)
}

// Get returns the entry for id.
func (s *Store) Get(id string) (*Entry, bool) {
	e, ok := s.licenses[id]
	return e, ok
}

// Resolve maps an identifier or alias, compared case-insensitively, to the
// canonical identifier.
func (s *Store) Resolve(name string) (string, bool) {
	if _, ok := s.licenses[name]; ok {
		return name, true
	}
	id, ok := s.aliases[strings.ToLower(name)]
	return id, ok
}

// AddLicense inserts or replaces the entry for id with raw as its canonical
// text. Replacing an entry keeps its aliases but drops its other forms.
func (s *Store) AddLicense(id, raw string) error {
	t := text.New(raw)
	if id == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidEntry)
	}
	if t.Empty() {
		return fmt.Errorf("%w: %s has no license text", ErrInvalidEntry, id)
	}
	s.put(&Entry{ID: id, Original: t})
	return nil
}

// AddHeader adds a short-form header rendering to id.
func (s *Store) AddHeader(id, raw string) error {
	e, err := s.mustGet(id)
	if err != nil {
		return err
	}
	e.Headers = append(e.Headers, text.New(raw))
	return nil
}

// AddAlternate adds another full-text rendering to id.
func (s *Store) AddAlternate(id, raw string) error {
	e, err := s.mustGet(id)
	if err != nil {
		return err
	}
	e.Alternates = append(e.Alternates, text.New(raw))
	return nil
}

// AddAliases records alternate identifiers for id. Duplicates are ignored.
func (s *Store) AddAliases(id string, aliases ...string) error {
	e, err := s.mustGet(id)
	if err != nil {
		return err
	}
	for _, a := range aliases {
		if a == "" || a == id || slices.Contains(e.Aliases, a) {
			continue
		}
		e.Aliases = append(e.Aliases, a)
		s.aliases[strings.ToLower(a)] = id
	}
	slices.Sort(e.Aliases)
	return nil
}

func (s *Store) mustGet(id string) (*Entry, error) {
	e, ok := s.licenses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLicense, id)
	}
	return e, nil
}

func (s *Store) put(e *Entry) {
	if old, ok := s.licenses[e.ID]; ok {
		e.Aliases = old.Aliases
	} else {
		i, _ := slices.BinarySearch(s.ids, e.ID)
		s.ids = slices.Insert(s.ids, i, e.ID)
	}
	s.licenses[e.ID] = e
	s.aliases[strings.ToLower(e.ID)] = e.ID
	for _, a := range e.Aliases {
		s.aliases[strings.ToLower(a)] = e.ID
	}
}
