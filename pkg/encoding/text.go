// Package encoding provides text decoding helpers for legacy save-file strings.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Lossy decodes data as UTF-8, replacing every invalid byte sequence with
// U+FFFD. It never fails.
func Lossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(result)
}

// FixedString decodes a fixed-size, NUL-padded buffer. Everything from the
// first NUL onwards is dropped.
func FixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return Lossy(data)
}
