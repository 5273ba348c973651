// Package winreg provides scoped handles over live Windows registry keys.
//
// A Key owns exactly one open OS handle. Close is idempotent, Detach
// transfers ownership and leaves the source owning nothing, and every
// fallible operation on a detached or closed key returns types.ErrClosed
// rather than touching a stale handle.
//
// The portable logic (enumeration, decode, the bounded resize-and-retry
// read loop) is written against a small syscall seam; the live
// implementation in sys_windows.go binds it to advapi32 through
// golang.org/x/sys/windows/registry, and non-Windows builds get a stub
// that fails to open anything.
package winreg
