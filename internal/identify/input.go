package identify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrInput matches every *InputError under errors.Is.
	ErrInput = errors.New("input error")
	// ErrNotText is reported for content that is not valid UTF-8 or UTF-16.
	ErrNotText = errors.New("not valid UTF-8 text")
)

// InputError reports an input that could not be read or decoded.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() []error { return []error{ErrInput, e.Err} }

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// Decode turns file content into text. A UTF-8 byte order mark is dropped and
// UTF-16 with a byte order mark is transcoded; anything else must be UTF-8.
func Decode(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16BE), bytes.HasPrefix(data, bomUTF16LE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", fmt.Errorf("decode utf-16: %w", err)
		}
		data = out
	}
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}

// ReadFile reads and decodes path. Failures are *InputError.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &InputError{Path: path, Err: err}
	}
	s, err := Decode(data)
	if err != nil {
		return "", &InputError{Path: path, Err: err}
	}
	return s, nil
}

// Read reads and decodes r, labelling failures with name.
func Read(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &InputError{Path: name, Err: err}
	}
	s, err := Decode(data)
	if err != nil {
		return "", &InputError{Path: name, Err: err}
	}
	return s, nil
}
