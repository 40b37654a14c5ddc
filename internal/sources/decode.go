package sources

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts raw file bytes to UTF-8 and reports the detected encoding.
// A byte order mark selects UTF-8 or UTF-16; BOM-less input that is not
// valid UTF-8 is read as Windows-1252, which is what spreadsheet tools on
// Windows write when exporting CSV.
func Decode(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return data, "utf-8", nil
	}

	var dec *encoding.Decoder
	name := ""
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		name = "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		name = "utf-16be"
	case utf8.Valid(data):
		return data, "utf-8", nil
	default:
		dec = charmap.Windows1252.NewDecoder()
		name = "windows-1252"
	}

	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, "", fmt.Errorf("%s decode failed: %w", name, err)
	}
	return out, name, nil
}
