package regtext

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/value"
)

// Entry is one key section of a .reg file: a full root-prefixed path and
// the values recorded under it. A Delete entry renders as [-Path] and
// carries no values.
type Entry struct {
	Path   string
	Delete bool
	Values []types.Value
}

// Emit renders the entries as a version 5.00 .reg file encoded as
// UTF-16LE with a byte order mark, the encoding regedit itself writes.
func Emit(entries []Entry) ([]byte, error) {
	text := EmitText(entries)
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding .reg output: %w", err)
	}
	return out, nil
}

// EmitText renders the entries as plain .reg text without transcoding.
func EmitText(entries []Entry) string {
	var buf bytes.Buffer
	buf.WriteString(RegFileHeader + CRLF + CRLF)
	for _, e := range entries {
		buf.WriteString(KeyOpenBracket)
		if e.Delete {
			buf.WriteString(DeleteKeyPrefix)
		}
		buf.WriteString(e.Path)
		buf.WriteString(KeyCloseBracket + CRLF)
		if !e.Delete {
			for _, v := range e.Values {
				emitValue(&buf, v)
			}
		}
		buf.WriteString(CRLF)
	}
	return buf.String()
}

func emitValue(buf *bytes.Buffer, v types.Value) {
	if v.Name == "" {
		buf.WriteString(DefaultValuePrefix)
	} else {
		buf.WriteString(Quote)
		buf.WriteString(escapeString(v.Name))
		buf.WriteString(Quote + ValueAssignment)
	}

	switch v.Type {
	case types.REG_SZ:
		s, _ := v.AsString()
		buf.WriteString(Quote)
		buf.WriteString(escapeString(s))
		buf.WriteString(Quote)
	case types.REG_DWORD:
		d, _ := v.AsDWord()
		buf.WriteString(DWORDPrefix)
		fmt.Fprintf(buf, DWORDHexFormat, d)
	case types.REG_BINARY:
		buf.WriteString(HexPrefix)
		buf.WriteString(formatHex(value.Encode(v)))
	default:
		// Every other type round-trips as typed hex so no information
		// is lost: hex(2) expand strings, hex(7) multi strings,
		// hex(b) qwords and so on.
		fmt.Fprintf(buf, HexTypeFormat, uint32(v.Type))
		buf.WriteString(formatHex(value.Encode(v)))
	}
	buf.WriteString(CRLF)
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, Backslash, EscapedBackslash)
	s = strings.ReplaceAll(s, Quote, EscapedQuote)
	return s
}

func formatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf(HexByteFormat, b)
	}
	return strings.Join(parts, HexByteSeparator)
}
