//go:build windows

package winreg

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/regsweep/regsweep/pkg/types"
)

var (
	modadvapi32        = windows.NewLazySystemDLL("advapi32.dll")
	procRegSetValueExW = modadvapi32.NewProc("RegSetValueExW")
	procRegDeleteTreeW = modadvapi32.NewProc("RegDeleteTreeW")
)

func rootHandle(root types.RootKey) registry.Key {
	switch root {
	case types.ClassesRoot:
		return registry.CLASSES_ROOT
	case types.CurrentUser:
		return registry.CURRENT_USER
	case types.LocalMachine:
		return registry.LOCAL_MACHINE
	case types.Users:
		return registry.USERS
	case types.CurrentConfig:
		return registry.CURRENT_CONFIG
	default:
		return registry.LOCAL_MACHINE
	}
}

func openSysKey(root types.RootKey, path string, access types.Access) (sysKey, error) {
	full := types.JoinKeyPath(root, path)
	k, err := registry.OpenKey(rootHandle(root), path, uint32(access))
	if err != nil {
		return nil, mapWinErr(err, full)
	}
	return &winKey{k: k, path: full}, nil
}

func createSysKey(root types.RootKey, path string, access types.Access) (sysKey, error) {
	full := types.JoinKeyPath(root, path)
	k, _, err := registry.CreateKey(rootHandle(root), path, uint32(access))
	if err != nil {
		return nil, mapWinErr(err, full)
	}
	return &winKey{k: k, path: full}, nil
}

// winKey binds the sysKey seam to an open advapi32 handle.
type winKey struct {
	k    registry.Key
	path string
}

func (w *winKey) Close() error {
	return w.k.Close()
}

func (w *winKey) SubkeyNames() ([]string, error) {
	names, err := w.k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, mapWinErr(err, w.path)
	}
	return names, nil
}

func (w *winKey) ValueNames() ([]string, error) {
	names, err := w.k.ReadValueNames(-1)
	if err != nil {
		return nil, mapWinErr(err, w.path)
	}
	return names, nil
}

func (w *winKey) QueryValue(name string, buf []byte) (int, uint32, error) {
	n, typ, err := w.k.GetValue(name, buf)
	switch {
	case err == nil:
		return n, typ, nil
	case errors.Is(err, registry.ErrShortBuffer):
		return n, typ, errShortBuffer
	default:
		return 0, 0, mapWinErr(err, w.path)
	}
}

func (w *winKey) SetValue(name string, typ uint32, data []byte) error {
	pname, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return mapWinErr(err, w.path)
	}
	var pdata *byte
	if len(data) > 0 {
		pdata = &data[0]
	}
	r0, _, _ := procRegSetValueExW.Call(
		uintptr(w.k),
		uintptr(unsafe.Pointer(pname)),
		0,
		uintptr(typ),
		uintptr(unsafe.Pointer(pdata)),
		uintptr(len(data)),
	)
	if r0 != 0 {
		return mapWinErr(syscall.Errno(r0), w.path)
	}
	return nil
}

func (w *winKey) DeleteValue(name string) error {
	if err := w.k.DeleteValue(name); err != nil {
		return mapWinErr(err, w.path)
	}
	return nil
}

func (w *winKey) DeleteSubkey(name string) error {
	// RegDeleteKey is non-recursive: fails on a key with children.
	if err := registry.DeleteKey(w.k, name); err != nil {
		return mapWinErr(err, w.path+`\`+name)
	}
	return nil
}

func (w *winKey) DeleteTree(name string) error {
	pname, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return mapWinErr(err, w.path)
	}
	r0, _, _ := procRegDeleteTreeW.Call(uintptr(w.k), uintptr(unsafe.Pointer(pname)))
	if r0 != 0 {
		return mapWinErr(syscall.Errno(r0), w.path+`\`+name)
	}
	return nil
}

func (w *winKey) OpenSubkey(name string, access types.Access) (sysKey, error) {
	sub, err := registry.OpenKey(w.k, name, uint32(access))
	if err != nil {
		return nil, mapWinErr(err, w.path+`\`+name)
	}
	return &winKey{k: sub, path: w.path + `\` + name}, nil
}

func (w *winKey) Counts() (int, int, error) {
	info, err := w.k.Stat()
	if err != nil {
		return 0, 0, mapWinErr(err, w.path)
	}
	return int(info.SubKeyCount), int(info.ValueCount), nil
}

// mapWinErr converts an OS error into the typed taxonomy, preserving the
// LSTATUS code and the offending path.
func mapWinErr(err error, path string) error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		kind := types.ErrKindState
		switch errno {
		case syscall.ERROR_FILE_NOT_FOUND, syscall.ERROR_PATH_NOT_FOUND:
			kind = types.ErrKindNotFound
		case syscall.ERROR_ACCESS_DENIED:
			kind = types.ErrKindAccessDenied
		}
		return &types.Error{Kind: kind, Status: int64(errno), Path: path, Msg: errno.Error()}
	}
	return &types.Error{Kind: types.ErrKindState, Path: path, Msg: "registry operation failed", Err: err}
}
