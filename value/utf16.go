package value

import (
	"unicode/utf16"

	"github.com/regsweep/regsweep/internal/format"
)

// decodeUTF16LE converts UTF-16LE bytes to a Go string. A trailing odd byte
// is ignored; trailing NUL units are NOT stripped here (callers decide).
func decodeUTF16LE(data []byte) string {
	if len(data) < format.UTF16CodeUnitSize {
		return ""
	}
	words := make([]uint16, len(data)/format.UTF16CodeUnitSize)
	for i := range words {
		words[i] = format.ReadU16(data, i*format.UTF16CodeUnitSize)
	}
	return string(utf16.Decode(words))
}

// encodeUTF16LE encodes a string to UTF-16LE without a terminator.
func encodeUTF16LE(s string) []byte {
	words := utf16.Encode([]rune(s))
	buf := make([]byte, len(words)*format.UTF16CodeUnitSize)
	for i, w := range words {
		format.PutU16(buf, i*format.UTF16CodeUnitSize, w)
	}
	return buf
}

// encodeUTF16LEZeroTerminated encodes a string to UTF-16LE with one trailing
// NUL unit, the on-disk shape of REG_SZ and friends.
func encodeUTF16LEZeroTerminated(s string) []byte {
	words := utf16.Encode([]rune(s))
	buf := make([]byte, (len(words)+1)*format.UTF16CodeUnitSize)
	for i, w := range words {
		format.PutU16(buf, i*format.UTF16CodeUnitSize, w)
	}
	// terminator is already zero from make()
	return buf
}

// stripTrailingNULs removes every trailing NUL unit from a decoded string.
func stripTrailingNULs(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == 0 {
		end--
	}
	return s[:end]
}

// decodeMultiUTF16LE splits UTF-16LE bytes into NUL-terminated runs. The
// scan stops at end-of-buffer or at an empty run (the double-NUL tail).
// Order is preserved and duplicate runs are kept.
func decodeMultiUTF16LE(data []byte) []string {
	nwords := len(data) / format.UTF16CodeUnitSize
	var out []string
	run := make([]uint16, 0, 32)
	for i := 0; i < nwords; i++ {
		w := format.ReadU16(data, i*format.UTF16CodeUnitSize)
		if w != 0 {
			run = append(run, w)
			continue
		}
		if len(run) == 0 {
			break // empty run: double-NUL terminator
		}
		out = append(out, string(utf16.Decode(run)))
		run = run[:0]
	}
	if len(run) > 0 {
		// last run was unterminated; keep it, corrupted data is tolerated
		out = append(out, string(utf16.Decode(run)))
	}
	return out
}

// encodeMultiUTF16LE encodes strings as NUL-terminated UTF-16LE runs with a
// trailing empty run (double NUL) after the last entry.
func encodeMultiUTF16LE(ss []string) []byte {
	var buf []byte
	for _, s := range ss {
		buf = append(buf, encodeUTF16LEZeroTerminated(s)...)
	}
	buf = append(buf, 0, 0)
	return buf
}
