package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regsweep/regsweep/internal/testutil"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("REGSWEEP_TEST_DIR", `C:\Tools`)

	cases := []struct {
		in, want string
	}{
		{`C:\plain\path.exe`, `C:\plain\path.exe`},
		{`%REGSWEEP_TEST_DIR%\app.exe`, `C:\Tools\app.exe`},
		{`%NOPE_UNDEFINED_VAR%\x`, `%NOPE_UNDEFINED_VAR%\x`},
		{`50% done`, `50% done`},
		{``, ``},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ExpandEnv(tc.in), "input %q", tc.in)
	}
}

func TestExtractCommandPath(t *testing.T) {
	prober := testutil.NewFakeFileProber(`C:\Tools\app`)

	cases := []struct {
		name  string
		in    string
		want  string
		found bool
	}{
		{"quoted with args", `"C:\Program Files\App\app.exe" /silent`, `C:\Program Files\App\app.exe`, true},
		{"bare exe with args", `C:\Windows\rundll.exe setup,Install`, `C:\Windows\rundll.exe`, true},
		{"uppercase extension", `C:\APP\TOOL.EXE /x`, `C:\APP\TOOL.EXE`, true},
		{"dll path", `C:\Windows\System32\thing.dll`, `C:\Windows\System32\thing.dll`, true},
		{"space split with existing head", `C:\Tools\app --flag`, `C:\Tools\app`, true},
		{"no split possible", `notapath`, `notapath`, true},
		{"empty", `   `, ``, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractCommandPath(tc.in, prober)
			require.Equal(t, tc.found, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
