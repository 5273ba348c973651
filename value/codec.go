package value

import (
	"github.com/regsweep/regsweep/internal/format"
	"github.com/regsweep/regsweep/pkg/types"
)

// Decode converts a raw registry payload into a typed Value. It is total:
// no type is rejected, and malformed input degrades to a zero value or an
// empty container instead of an error.
func Decode(name string, t types.RegType, raw []byte) types.Value {
	v := types.Value{Name: name, Type: t}

	switch t {
	case types.REG_NONE:
		v.Data = types.NoneData{}

	case types.REG_SZ, types.REG_EXPAND_SZ, types.REG_LINK:
		v.Data = types.StringData(stripTrailingNULs(decodeUTF16LE(raw)))

	case types.REG_MULTI_SZ:
		v.Data = types.MultiStringData(decodeMultiUTF16LE(raw))

	case types.REG_BINARY,
		types.REG_RESOURCE_LIST,
		types.REG_FULL_RESOURCE_DESCRIPTOR,
		types.REG_RESOURCE_REQUIREMENTS_LIST:
		v.Data = types.BinaryData(cloneBytes(raw))

	case types.REG_DWORD:
		if len(raw) >= format.DWORDSize {
			v.Data = types.DWordData(format.ReadU32(raw, 0))
		} else {
			v.Data = types.DWordData(0)
		}

	case types.REG_DWORD_BE:
		if len(raw) >= format.DWORDSize {
			v.Data = types.DWordData(format.ReadU32BE(raw, 0))
		} else {
			v.Data = types.DWordData(0)
		}

	case types.REG_QWORD:
		if len(raw) >= format.QWORDSize {
			v.Data = types.QWordData(format.ReadU64(raw, 0))
		} else {
			v.Data = types.QWordData(0)
		}

	default:
		// Unknown type: carry the bytes through untouched.
		v.Data = types.BinaryData(cloneBytes(raw))
	}

	return v
}

// Encode converts a typed Value back to its raw payload. Strings gain one
// trailing NUL unit, multi-strings a double-NUL tail, integers are emitted
// at native width. Encode(Decode(raw)) reproduces raw for well-formed input.
func Encode(v types.Value) []byte {
	switch d := v.Data.(type) {
	case nil, types.NoneData:
		return nil
	case types.StringData:
		return encodeUTF16LEZeroTerminated(string(d))
	case types.MultiStringData:
		return encodeMultiUTF16LE(d)
	case types.BinaryData:
		return cloneBytes(d)
	case types.DWordData:
		buf := make([]byte, format.DWORDSize)
		if v.Type == types.REG_DWORD_BE {
			format.PutU32BE(buf, 0, uint32(d))
		} else {
			format.PutU32(buf, 0, uint32(d))
		}
		return buf
	case types.QWordData:
		buf := make([]byte, format.QWORDSize)
		format.PutU64(buf, 0, uint64(d))
		return buf
	default:
		return nil
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
