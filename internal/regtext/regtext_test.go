package regtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regsweep/regsweep/pkg/types"
)

func TestEmitText_Header(t *testing.T) {
	text := EmitText(nil)
	require.True(t, strings.HasPrefix(text, RegFileHeader+CRLF))
}

func TestEmitText_RendersValueForms(t *testing.T) {
	entries := []Entry{{
		Path: `HKEY_CURRENT_USER\SOFTWARE\Vendor\App`,
		Values: []types.Value{
			{Name: "", Type: types.REG_SZ, Data: types.StringData("default")},
			{Name: "Install Dir", Type: types.REG_SZ, Data: types.StringData(`C:\Program Files\App`)},
			{Name: "Launches", Type: types.REG_DWORD, Data: types.DWordData(0x2A)},
			{Name: "Blob", Type: types.REG_BINARY, Data: types.BinaryData{0xDE, 0xAD}},
			{Name: "Paths", Type: types.REG_MULTI_SZ, Data: types.MultiStringData{"a", "b"}},
		},
	}}
	text := EmitText(entries)

	require.Contains(t, text, `[HKEY_CURRENT_USER\SOFTWARE\Vendor\App]`)
	require.Contains(t, text, `@="default"`)
	require.Contains(t, text, `"Install Dir"="C:\\Program Files\\App"`)
	require.Contains(t, text, `"Launches"=dword:0000002a`)
	require.Contains(t, text, `"Blob"=hex:de,ad`)
	require.Contains(t, text, `"Paths"=hex(7):61,00,00,00,62,00,00,00,00,00`)
}

func TestEmitText_DeleteEntry(t *testing.T) {
	text := EmitText([]Entry{{Path: `HKEY_CURRENT_USER\SOFTWARE\Gone`, Delete: true}})
	require.Contains(t, text, `[-HKEY_CURRENT_USER\SOFTWARE\Gone]`)
}

func TestParse_RoundTrip(t *testing.T) {
	in := []Entry{{
		Path: `HKEY_LOCAL_MACHINE\SOFTWARE\Vendor`,
		Values: []types.Value{
			{Name: "Name", Type: types.REG_SZ, Data: types.StringData(`quote " and slash \`)},
			{Name: "Count", Type: types.REG_DWORD, Data: types.DWordData(7)},
			{Name: "Raw", Type: types.REG_BINARY, Data: types.BinaryData{1, 2, 3}},
			{Name: "Multi", Type: types.REG_MULTI_SZ, Data: types.MultiStringData{"x", "y"}},
			{Name: "Expand", Type: types.REG_EXPAND_SZ, Data: types.StringData(`%TEMP%\x`)},
			{Name: "Big", Type: types.REG_QWORD, Data: types.QWordData(1 << 40)},
		},
	}}

	data, err := Emit(in)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), string(UTF16LEBOM)))

	out, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, in[0].Path, out[0].Path)
	require.Equal(t, in[0].Values, out[0].Values)
}

func TestParse_UTF8AndDeleteMarker(t *testing.T) {
	src := "Windows Registry Editor Version 5.00\r\n" +
		"\r\n" +
		"; backup of removed key\r\n" +
		"[-HKEY_CURRENT_USER\\SOFTWARE\\Stale]\r\n" +
		"\r\n" +
		"[HKEY_CURRENT_USER\\SOFTWARE\\Kept]\r\n" +
		"\"v\"=dword:00000001\r\n"

	entries, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[0].Delete)
	require.Equal(t, `HKEY_CURRENT_USER\SOFTWARE\Stale`, entries[0].Path)
	require.False(t, entries[1].Delete)
	require.Len(t, entries[1].Values, 1)
}

func TestParse_HexContinuationLines(t *testing.T) {
	src := "Windows Registry Editor Version 5.00\r\n" +
		"\r\n" +
		"[HKEY_CURRENT_USER\\SOFTWARE\\X]\r\n" +
		"\"blob\"=hex:00,01,02,\\\r\n" +
		"  03,04\r\n"

	entries, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Values, 1)

	b, ok := entries[0].Values[0].AsBinary()
	require.True(t, ok)
	require.Equal(t, []byte{0, 1, 2, 3, 4}, b)
}

func TestParse_MalformedLines(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"value before key", `"v"=dword:00000001`},
		{"bad dword", "[HKEY_CURRENT_USER\\X]\r\n\"v\"=dword:zz\r\n"},
		{"bad hex byte", "[HKEY_CURRENT_USER\\X]\r\n\"v\"=hex:zz\r\n"},
		{"unterminated string", "[HKEY_CURRENT_USER\\X]\r\n\"v\"=\"oops\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src))
			require.Error(t, err)
		})
	}
}

func TestParse_EscapedValueName(t *testing.T) {
	src := "[HKEY_CURRENT_USER\\X]\r\n" +
		"\"path \\\"quoted\\\"\"=\"v\"\r\n"
	entries, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, `path "quoted"`, entries[0].Values[0].Name)
}
