package protect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsProtectedKey(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{`HKEY_LOCAL_MACHINE\SYSTEM\Anything`, true},
		{`HKEY_LOCAL_MACHINE\SYSTEM`, true},
		{`hkey_local_machine\system\CurrentControlSet`, true},
		{`HKEY_LOCAL_MACHINE\SECURITY\Policy`, true},
		{`HKEY_LOCAL_MACHINE\SAM\SAM`, true},
		{`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Run`, true},
		{`HKEY_CURRENT_USER\SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce\X`, true},
		{`HKEY_CLASSES_ROOT\.exe`, true},
		{`HKEY_CLASSES_ROOT\exefile\shell`, true},
		{`HKEY_CURRENT_USER\SOFTWARE\RandomApp`, false},
		{`HKEY_LOCAL_MACHINE\SOFTWARE\Vendor\Tool`, false},
		{`HKEY_CLASSES_ROOT\.xyz`, false},
		{``, false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, IsProtectedKey(tc.path), "path %q", tc.path)
	}
}

func TestIsProtectedValue(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"(Default)", true},
		{"(default)", true},
		{"@", true},
		{"Path", true},
		{"PATH", true},
		{"InstallPath", true},
		{"SystemRoot", true},
		{"windir", true},
		{"DisplayName", false},
		{"Path2", false},
		{"", false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, IsProtectedValue(tc.name), "value %q", tc.name)
	}
}

func TestContainsCriticalKeyword(t *testing.T) {
	require.True(t, ContainsCriticalKeyword(`C:\Windows\System32\svchost.exe`))
	require.True(t, ContainsCriticalKeyword(`c:\program files\microsoft office`))
	require.True(t, ContainsCriticalKeyword(`something with DRIVER inside`))
	require.False(t, ContainsCriticalKeyword(`C:\Games\Solitaire\sol.exe`))
	require.False(t, ContainsCriticalKeyword(""))
}
