package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/dsablic/licensematch/internal/text"
)

// FormatVersion is bumped on any incompatible change to the cache layout.
const FormatVersion uint16 = 1

const cacheMagic = "LMSTORE\x00"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrCacheMissing = errors.New("cache missing")
	ErrCacheCorrupt = errors.New("cache corrupt")
	ErrCacheVersion = errors.New("cache version mismatch")
)

// CacheKind classifies cache failures so callers can suggest a rebuild.
type CacheKind int

const (
	CacheMissing CacheKind = iota + 1
	CacheCorrupt
	CacheVersion
)

func (k CacheKind) sentinel() error {
	switch k {
	case CacheMissing:
		return ErrCacheMissing
	case CacheVersion:
		return ErrCacheVersion
	}
	return ErrCacheCorrupt
}

// CacheError reports a cache that could not be loaded. It matches the
// ErrCache* sentinel for its kind under errors.Is.
type CacheError struct {
	Kind CacheKind
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CacheError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// CacheOptions controls what WriteCache stores.
type CacheOptions struct {
	// StoreTexts keeps raw license texts for display. Without it only the
	// normalized lines are written, which is all matching needs.
	StoreTexts bool
}

type cacheDoc struct {
	ShingleSize int                   `json:"shingle_size"`
	Licenses    map[string]cacheEntry `json:"licenses"`
}

type cacheEntry struct {
	Original   cacheText   `json:"original"`
	Aliases    []string    `json:"aliases,omitempty"`
	Headers    []cacheText `json:"headers,omitempty"`
	Alternates []cacheText `json:"alternates,omitempty"`
}

type cacheText struct {
	Lines []string `json:"lines"`
	Raw   string   `json:"raw,omitempty"`
}

// WriteCache serializes the store: a magic marker, the format version, then a
// zstd-compressed JSON document.
func (s *Store) WriteCache(w io.Writer, opts CacheOptions) error {
	header := make([]byte, len(cacheMagic)+2)
	copy(header, cacheMagic)
	binary.BigEndian.PutUint16(header[len(cacheMagic):], FormatVersion)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write cache header: %w", err)
	}

	doc := cacheDoc{ShingleSize: text.ShingleSize, Licenses: make(map[string]cacheEntry, len(s.licenses))}
	for _, id := range s.ids {
		e := s.licenses[id]
		ce := cacheEntry{
			Original: toCacheText(e.Original, opts),
			Aliases:  e.Aliases,
		}
		for _, h := range e.Headers {
			ce.Headers = append(ce.Headers, toCacheText(h, opts))
		}
		for _, a := range e.Alternates {
			ce.Alternates = append(ce.Alternates, toCacheText(a, opts))
		}
		doc.Licenses[id] = ce
	}

	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		zw.Close()
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	return nil
}

func toCacheText(t *text.Text, opts CacheOptions) cacheText {
	ct := cacheText{Lines: t.Lines()}
	if opts.StoreTexts {
		ct.Raw = t.Raw()
	}
	return ct
}

// FromCache loads a store written by WriteCache. Fingerprints are recomputed
// from the stored normalized lines. A damaged blob or one written by an
// incompatible version fails with a *CacheError; it never yields a partial
// store.
func FromCache(r io.Reader, opts ...Option) (*Store, error) {
	header := make([]byte, len(cacheMagic)+2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, &CacheError{Kind: CacheCorrupt, Err: fmt.Errorf("read header: %w", err)}
	}
	if string(header[:len(cacheMagic)]) != cacheMagic {
		return nil, &CacheError{Kind: CacheCorrupt, Err: errors.New("not a license cache")}
	}
	if v := binary.BigEndian.Uint16(header[len(cacheMagic):]); v != FormatVersion {
		return nil, &CacheError{Kind: CacheVersion, Err: fmt.Errorf("format %d, want %d", v, FormatVersion)}
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, &CacheError{Kind: CacheCorrupt, Err: err}
	}
	defer zr.Close()

	var doc cacheDoc
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, &CacheError{Kind: CacheCorrupt, Err: fmt.Errorf("decode: %w", err)}
	}
	if doc.ShingleSize != text.ShingleSize {
		return nil, &CacheError{Kind: CacheVersion, Err: fmt.Errorf("shingle size %d, want %d", doc.ShingleSize, text.ShingleSize)}
	}
	if doc.Licenses == nil {
		return nil, &CacheError{Kind: CacheCorrupt, Err: errors.New("no licenses table")}
	}

	s := New(opts...)
	for id, ce := range doc.Licenses {
		original := fromCacheText(ce.Original)
		if id == "" || original.Empty() {
			return nil, &CacheError{Kind: CacheCorrupt, Err: fmt.Errorf("%w: %q", ErrInvalidEntry, id)}
		}
		e := &Entry{ID: id, Original: original}
		for _, h := range ce.Headers {
			e.Headers = append(e.Headers, fromCacheText(h))
		}
		for _, a := range ce.Alternates {
			e.Alternates = append(e.Alternates, fromCacheText(a))
		}
		s.put(e)
		if err := s.AddAliases(id, ce.Aliases...); err != nil {
			return nil, &CacheError{Kind: CacheCorrupt, Err: err}
		}
	}
	return s, nil
}

func fromCacheText(ct cacheText) *text.Text {
	return text.Restore(ct.Raw, ct.Lines)
}

// LoadFile reads a cache file.
func LoadFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &CacheError{Kind: CacheMissing, Path: path}
		}
		return nil, &CacheError{Kind: CacheMissing, Path: path, Err: err}
	}
	defer f.Close()

	s, err := FromCache(f, opts...)
	if err != nil {
		var ce *CacheError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return s, nil
}

// SaveFile writes the cache to path atomically.
func (s *Store) SaveFile(path string, opts CacheOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".licensematch-cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.WriteCache(tmp, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install cache: %w", err)
	}
	return nil
}
