package spdx

import (
	"embed"
	"io/fs"

	"github.com/dsablic/licensematch/internal/store"
)

//go:embed licenses
var builtinFS embed.FS

// Builtin returns a store holding the embedded license set. It is enough to
// recognize the most common permissive licenses without an SPDX checkout.
func Builtin(opts ...store.Option) (*store.Store, error) {
	sub, err := fs.Sub(builtinFS, "licenses")
	if err != nil {
		return nil, err
	}
	st := store.New(opts...)
	if _, err := LoadFS(sub, st); err != nil {
		return nil, err
	}
	return st, nil
}
