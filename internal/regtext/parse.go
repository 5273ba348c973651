package regtext

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/value"
)

// Parse reads .reg file content and returns its key sections in file
// order. The input may be UTF-16LE with a BOM (regedit's own output),
// UTF-8 with a BOM, or plain UTF-8.
func Parse(data []byte) ([]Entry, error) {
	text, err := decodeInput(data)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	buf := make([]byte, 0, ScannerInitialBufferSize)
	scanner.Buffer(buf, ScannerMaxLineSize)

	var (
		entries []Entry
		current *Entry
		pending string // logical line under assembly across continuations
	)

	flush := func(line string) error {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			return nil
		}
		if strings.HasPrefix(line, "Windows Registry Editor") || line == "REGEDIT4" {
			return nil
		}
		if strings.HasPrefix(line, KeyOpenBracket) && strings.HasSuffix(line, KeyCloseBracket) {
			path := strings.TrimSuffix(strings.TrimPrefix(line, KeyOpenBracket), KeyCloseBracket)
			e := Entry{Path: path}
			if strings.HasPrefix(e.Path, DeleteKeyPrefix) {
				e.Path = strings.TrimPrefix(e.Path, DeleteKeyPrefix)
				e.Delete = true
			}
			entries = append(entries, e)
			current = &entries[len(entries)-1]
			return nil
		}
		if current == nil {
			return fmt.Errorf("value line before any key section: %q", line)
		}
		v, err := parseValueLine(line)
		if err != nil {
			return fmt.Errorf("key %s: %w", current.Path, err)
		}
		current.Values = append(current.Values, v)
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		// Hex payloads wrap across lines with a trailing backslash.
		if trimmed := strings.TrimRight(line, " \t"); strings.HasSuffix(trimmed, Backslash) {
			pending += strings.TrimSuffix(trimmed, Backslash)
			continue
		}
		if err := flush(pending + line); err != nil {
			return nil, err
		}
		pending = ""
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning .reg input: %w", err)
	}
	if pending != "" {
		if err := flush(pending); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func decodeInput(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, UTF16LEBOM):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", fmt.Errorf("decoding UTF-16LE .reg input: %w", err)
		}
		return string(out), nil
	case bytes.HasPrefix(data, UTF8BOM):
		return string(data[len(UTF8BOM):]), nil
	default:
		return string(data), nil
	}
}

// parseValueLine converts one "Name"=payload line into a typed value.
func parseValueLine(line string) (types.Value, error) {
	var name, payload string
	switch {
	case strings.HasPrefix(line, DefaultValuePrefix):
		payload = strings.TrimPrefix(line, DefaultValuePrefix)
	case strings.HasPrefix(line, Quote):
		end := findClosingQuote(line)
		if end == -1 || end+1 >= len(line) || line[end+1] != '=' {
			return types.Value{}, fmt.Errorf("malformed value line: %q", line)
		}
		name = unescapeRegString(line[1:end])
		payload = line[end+2:]
	default:
		return types.Value{}, fmt.Errorf("unrecognized value line: %q", line)
	}
	payload = strings.TrimSpace(payload)

	switch {
	case strings.HasPrefix(payload, Quote):
		if len(payload) < 2 || !strings.HasSuffix(payload, Quote) {
			return types.Value{}, fmt.Errorf("unterminated string payload: %q", payload)
		}
		s := unescapeRegString(payload[1 : len(payload)-1])
		return types.Value{Name: name, Type: types.REG_SZ, Data: types.StringData(s)}, nil

	case strings.HasPrefix(payload, DWORDPrefix):
		raw := strings.TrimPrefix(payload, DWORDPrefix)
		d, err := strconv.ParseUint(raw, 16, 32)
		if err != nil {
			return types.Value{}, fmt.Errorf("invalid dword payload %q: %w", raw, err)
		}
		return types.Value{Name: name, Type: types.REG_DWORD, Data: types.DWordData(uint32(d))}, nil

	case strings.HasPrefix(payload, "hex("):
		t, rest, err := splitHexType(payload)
		if err != nil {
			return types.Value{}, err
		}
		data, err := parseHexBytes(rest)
		if err != nil {
			return types.Value{}, err
		}
		return value.Decode(name, t, data), nil

	case strings.HasPrefix(payload, HexPrefix):
		data, err := parseHexBytes(strings.TrimPrefix(payload, HexPrefix))
		if err != nil {
			return types.Value{}, err
		}
		return value.Decode(name, types.REG_BINARY, data), nil

	default:
		return types.Value{}, fmt.Errorf("unrecognized payload: %q", payload)
	}
}

// splitHexType parses a "hex(N):..." payload into its registry type and
// the comma-separated hex remainder.
func splitHexType(payload string) (types.RegType, string, error) {
	end := strings.Index(payload, ")")
	if end < len("hex(")+1 {
		return 0, "", fmt.Errorf("malformed typed hex payload: %q", payload)
	}
	t, err := strconv.ParseUint(payload[len("hex("):end], 16, 32)
	if err != nil {
		return 0, "", fmt.Errorf("invalid hex type in %q: %w", payload, err)
	}
	if end+1 >= len(payload) || payload[end+1] != ':' {
		return 0, "", fmt.Errorf("malformed typed hex payload: %q", payload)
	}
	return types.RegType(t), payload[end+2:], nil
}

// parseHexBytes parses comma-separated hex bytes, tolerating whitespace
// and single-digit bytes.
func parseHexBytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)/3+1)
	for _, part := range strings.Split(s, HexByteSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q: %w", part, err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// unescapeRegString reverses .reg escaping: \\ becomes \ and \" becomes ".
func unescapeRegString(s string) string {
	if strings.IndexByte(s, '\\') == -1 {
		return s
	}
	s = strings.ReplaceAll(s, EscapedBackslash, Backslash)
	s = strings.ReplaceAll(s, EscapedQuote, Quote)
	return s
}

// findClosingQuote locates the closing quote of a value name, skipping
// quotes preceded by an odd number of backslashes. Returns -1 when the
// name never terminates.
func findClosingQuote(line string) int {
	for i := 1; i < len(line); i++ {
		if line[i] == '"' {
			backslashes := 0
			for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 1 {
				continue
			}
			return i
		}
	}
	return -1
}

var errEmptyRegFile = errors.New("regtext: no key sections found")

// RequireEntries rejects parses that produced no sections, which means
// the input was not .reg content at all.
func RequireEntries(entries []Entry) error {
	if len(entries) == 0 {
		return errEmptyRegFile
	}
	return nil
}
