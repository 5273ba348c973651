package regtext

const (
	// RegFileHeader is the required header line for .reg files version 5.00.
	RegFileHeader = "Windows Registry Editor Version 5.00"

	// KeyOpenBracket marks the start of a registry key path.
	KeyOpenBracket = "["

	// KeyCloseBracket marks the end of a registry key path.
	KeyCloseBracket = "]"

	// DeleteKeyPrefix marks a key for deletion (e.g., [-HKEY_LOCAL_MACHINE\...]).
	DeleteKeyPrefix = "-"

	// ValueAssignment separates value names from their data.
	ValueAssignment = "="

	// DefaultValuePrefix marks the default (unnamed) value.
	DefaultValuePrefix = "@="

	// CommentPrefix marks a comment line.
	CommentPrefix = ";"

	// Quote is the double-quote character for value names and string data.
	Quote = "\""

	// Backslash is used for escaping and path separators.
	Backslash = "\\"

	// EscapedQuote is the escaped double-quote sequence.
	EscapedQuote = "\\\""

	// EscapedBackslash is the escaped backslash sequence.
	EscapedBackslash = "\\\\"

	// CRLF is the Windows line ending.
	CRLF = "\r\n"

	// DWORDPrefix identifies a DWORD value in .reg format.
	DWORDPrefix = "dword:"

	// HexPrefix identifies untyped binary data in .reg format.
	HexPrefix = "hex:"

	// HexTypeFormat is the format string for typed hex values: hex(%x):.
	HexTypeFormat = "hex(%x):"

	// HexByteSeparator separates bytes in hex data.
	HexByteSeparator = ","

	// HexByteFormat is the format string for a single hex byte.
	HexByteFormat = "%02x"

	// DWORDHexFormat is the format string for DWORD values (8 hex digits).
	DWORDHexFormat = "%08x"

	// ScannerInitialBufferSize is the initial buffer size for the line scanner.
	ScannerInitialBufferSize = 64 * 1024

	// ScannerMaxLineSize is the maximum line size for the line scanner.
	// Some exports carry very large binary values on one logical line.
	ScannerMaxLineSize = 4 * 1024 * 1024
)

var (
	// UTF16LEBOM is the byte order mark for UTF-16 little-endian.
	UTF16LEBOM = []byte{0xFF, 0xFE}

	// UTF8BOM is the byte order mark for UTF-8.
	UTF8BOM = []byte{0xEF, 0xBB, 0xBF}
)
