package csv

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a supported input text encoding.
type Encoding string

const (
	// EncodingLatin1 is ISO-8859-1, the default for exported contact lists.
	EncodingLatin1 Encoding = "latin1"
	// EncodingWindows1252 is the Windows superset of Latin-1.
	EncodingWindows1252 Encoding = "cp1252"
	// EncodingUTF8 decodes UTF-8, replacing invalid sequences with U+FFFD.
	EncodingUTF8 Encoding = "utf8"
)

// ParseEncoding maps a user supplied name to an Encoding.
// An empty name selects EncodingLatin1.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "")) {
	case "", "latin1", "iso88591", "l1":
		return EncodingLatin1, nil
	case "cp1252", "windows1252":
		return EncodingWindows1252, nil
	case "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

func (e Encoding) decoder() *encoding.Decoder {
	switch e {
	case EncodingUTF8:
		return unicode.UTF8.NewDecoder()
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder()
	default:
		return charmap.ISO8859_1.NewDecoder()
	}
}

// decodeReader wraps r so it yields UTF-8 text.
//
// A leading byte order mark overrides the configured encoding: files saved
// as "UTF-8 with BOM" are read as UTF-8 and the mark is dropped, so it never
// ends up glued to the first header name.
func decodeReader(r io.Reader, enc Encoding) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(enc.decoder()))
}
