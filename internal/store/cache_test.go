package store_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsablic/licensematch/internal/store"
	"github.com/dsablic/licensematch/internal/text"
)

func roundTrip(t *testing.T, st *store.Store, opts store.CacheOptions) *store.Store {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, st.WriteCache(&buf, opts))
	loaded, err := store.FromCache(&buf)
	require.NoError(t, err)
	return loaded
}

func TestCacheRoundTripPreservesMatches(t *testing.T) {
	st := builtin(t)
	require.NoError(t, st.AddAlternate("MIT", "Permission is granted to use this software under MIT-like terms"))

	queries := []string{unrelatedProse, "", "MIT", "Licensed under the Apache License, Version 2.0"}
	for _, id := range st.Licenses() {
		e, _ := st.Get(id)
		for _, f := range e.Forms() {
			queries = append(queries, f.Text.Raw())
			lines := strings.Split(f.Text.Raw(), "\n")
			queries = append(queries, strings.Join(lines[len(lines)/3:], "\n"))
		}
	}

	for _, opts := range []store.CacheOptions{{}, {StoreTexts: true}} {
		loaded := roundTrip(t, st, opts)
		assert.Equal(t, st.Licenses(), loaded.Licenses())
		for _, q := range queries {
			tq := text.New(q)
			assert.Equal(t, st.Analyze(tq), loaded.Analyze(tq))
			assert.Equal(t, st.Candidates(tq, 5), loaded.Candidates(tq, 5))
		}
	}
}

func TestCacheStoreTexts(t *testing.T) {
	st := builtin(t)
	mit, _ := st.Get("MIT")

	bare := roundTrip(t, st, store.CacheOptions{})
	e, _ := bare.Get("MIT")
	assert.Empty(t, e.Original.Raw())
	assert.Equal(t, mit.Original.Lines(), e.Original.Lines())

	full := roundTrip(t, st, store.CacheOptions{StoreTexts: true})
	e, _ = full.Get("MIT")
	assert.Equal(t, mit.Original.Raw(), e.Original.Raw())
}

func TestCacheKeepsAliasesAndVariants(t *testing.T) {
	st := builtin(t)
	loaded := roundTrip(t, st, store.CacheOptions{})

	id, ok := loaded.Resolve("asl-2.0")
	assert.True(t, ok)
	assert.Equal(t, "Apache-2.0", id)

	apache, _ := loaded.Get("Apache-2.0")
	assert.Len(t, apache.Headers, 1)
}

func TestCacheIsDeterministic(t *testing.T) {
	st := builtin(t)
	var a, b bytes.Buffer
	require.NoError(t, st.WriteCache(&a, store.CacheOptions{StoreTexts: true}))
	require.NoError(t, st.WriteCache(&b, store.CacheOptions{StoreTexts: true}))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

// cacheBlob frames a hand-written JSON document the way WriteCache does.
func cacheBlob(t *testing.T, doc string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("LMSTORE\x00")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, store.FormatVersion))
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromCacheEmptyTable(t *testing.T) {
	st, err := store.FromCache(bytes.NewReader(cacheBlob(t, `{"shingle_size":2,"licenses":{}}`)))
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestFromCacheErrors(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, builtin(t).WriteCache(&good, store.CacheOptions{}))
	blob := good.Bytes()

	versioned := bytes.Clone(blob)
	binary.BigEndian.PutUint16(versioned[8:10], store.FormatVersion+1)

	garbled := bytes.Clone(blob)
	for i := 10; i < len(garbled); i++ {
		garbled[i] ^= 0x5a
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, store.ErrCacheCorrupt},
		{"short header", blob[:5], store.ErrCacheCorrupt},
		{"wrong magic", append([]byte("NOTACACHE!"), blob[10:]...), store.ErrCacheCorrupt},
		{"future version", versioned, store.ErrCacheVersion},
		{"truncated body", blob[:len(blob)/2], store.ErrCacheCorrupt},
		{"garbled body", garbled, store.ErrCacheCorrupt},
		{"no licenses table", cacheBlob(t, `{"shingle_size":2}`), store.ErrCacheCorrupt},
		{"null licenses table", cacheBlob(t, `{"shingle_size":2,"licenses":null}`), store.ErrCacheCorrupt},
		{"other shingle size", cacheBlob(t, `{"shingle_size":3,"licenses":{}}`), store.ErrCacheVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := store.FromCache(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Nil(t, st)
			assert.ErrorIs(t, err, tt.want)

			var ce *store.CacheError
			require.True(t, errors.As(err, &ce))
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	st := builtin(t)
	path := filepath.Join(t.TempDir(), "nested", "cache.bin.zst")
	require.NoError(t, st.SaveFile(path, store.CacheOptions{StoreTexts: true}))

	loaded, err := store.LoadFile(path, store.WithFloor(0.5))
	require.NoError(t, err)
	assert.Equal(t, st.Len(), loaded.Len())
	assert.Equal(t, 0.5, loaded.Floor())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should be cleaned up")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := store.LoadFile(filepath.Join(t.TempDir(), "absent.bin.zst"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCacheMissing)

	var ce *store.CacheError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, store.CacheMissing, ce.Kind)
	assert.Contains(t, err.Error(), "absent.bin.zst")
}

func TestLoadFileCorruptCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin.zst")
	require.NoError(t, os.WriteFile(path, []byte("garbage that is not a cache"), 0o644))

	_, err := store.LoadFile(path)
	assert.ErrorIs(t, err, store.ErrCacheCorrupt)
	assert.Contains(t, err.Error(), path)
}
