package format

import "encoding/binary"

// Binary encoding utilities for registry value payloads.
//
// Registry value data is little-endian with one exception:
// REG_DWORD_BIG_ENDIAN stores its four bytes in network order, so the
// big-endian pair below exists alongside the little-endian helpers.
//
// Implementation: encoding/binary. The compiler inlines these calls, so
// there is no reason to reach for unsafe here.

// UTF16CodeUnitSize is the width of one UTF-16 code unit in bytes.
const UTF16CodeUnitSize = 2

// DWORDSize is the width of a REG_DWORD payload in bytes.
const DWORDSize = 4

// QWORDSize is the width of a REG_QWORD payload in bytes.
const QWORDSize = 8

// PutU16 writes a uint16 value to the buffer at the specified offset in little-endian format.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU32BE writes a uint32 value at the specified offset in big-endian format.
func PutU32BE(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU16 reads a uint16 value from the buffer at the specified offset in little-endian format.
func ReadU16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU32BE reads a uint32 value at the specified offset in big-endian format.
func ReadU32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
