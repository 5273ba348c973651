// Package protect is the protected-key policy: a pure, I/O-free
// classification oracle over key paths and value names. IsProtectedKey and
// IsProtectedValue are the sole authoritative gates consulted before any
// destructive registry operation; ContainsCriticalKeyword is an advisory
// heuristic only.
//
// The lists are fixed at process start and never mutated at runtime.
package protect

import "strings"

// criticalKeys are system-critical key prefixes that must never be modified
// or deleted.
var criticalKeys = []string{
	// System core
	`HKEY_LOCAL_MACHINE\SYSTEM`,
	`HKEY_LOCAL_MACHINE\SECURITY`,
	`HKEY_LOCAL_MACHINE\SAM`,
	`HKEY_LOCAL_MACHINE\HARDWARE`,
	`HKEY_LOCAL_MACHINE\BCD00000000`,

	// Windows core
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows NT\CurrentVersion`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Run`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Policies`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\Shell Folders`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\User Shell Folders`,

	// Security
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Cryptography`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows Defender`,
	`HKEY_LOCAL_MACHINE\SOFTWARE\Policies`,

	// User core
	`HKEY_CURRENT_USER\SOFTWARE\Microsoft\Windows\CurrentVersion\Run`,
	`HKEY_CURRENT_USER\SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`,
	`HKEY_CURRENT_USER\SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\Shell Folders`,
	`HKEY_CURRENT_USER\SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\User Shell Folders`,

	// Classes root essentials
	`HKEY_CLASSES_ROOT\.exe`,
	`HKEY_CLASSES_ROOT\.dll`,
	`HKEY_CLASSES_ROOT\.bat`,
	`HKEY_CLASSES_ROOT\.cmd`,
	`HKEY_CLASSES_ROOT\.com`,
	`HKEY_CLASSES_ROOT\.lnk`,
	`HKEY_CLASSES_ROOT\.msi`,
	`HKEY_CLASSES_ROOT\exefile`,
	`HKEY_CLASSES_ROOT\dllfile`,
	`HKEY_CLASSES_ROOT\batfile`,
	`HKEY_CLASSES_ROOT\cmdfile`,
}

// protectedValues are value names that must never be deleted, regardless of
// which key carries them.
var protectedValues = []string{
	"(Default)",
	"@",
	"Path",
	"InstallPath",
	"ProgramFilesDir",
	"CommonFilesDir",
	"SystemRoot",
	"windir",
}

// criticalKeywords mark paths that likely belong to the OS. Advisory only:
// scanners use this to skip candidates, the cleaner does not treat it as a
// block.
var criticalKeywords = []string{
	"Microsoft",
	"Windows",
	"System32",
	"SysWOW64",
	"WinSxS",
	"Trusted",
	"Security",
	"Policy",
	"Crypto",
	"Driver",
	"Service",
}

// IsProtectedKey reports whether keyPath falls under any critical key prefix.
// Matching is case-insensitive.
func IsProtectedKey(keyPath string) bool {
	for _, p := range criticalKeys {
		if len(keyPath) >= len(p) && strings.EqualFold(keyPath[:len(p)], p) {
			return true
		}
	}
	return false
}

// IsProtectedValue reports whether valueName matches a protected value name.
// Matching is exact and case-insensitive.
func IsProtectedValue(valueName string) bool {
	for _, p := range protectedValues {
		if strings.EqualFold(valueName, p) {
			return true
		}
	}
	return false
}

// ContainsCriticalKeyword reports whether path contains any critical keyword,
// case-insensitively.
func ContainsCriticalKeyword(path string) bool {
	upper := strings.ToUpper(path)
	for _, kw := range criticalKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}
