package winreg

import (
	"errors"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/value"
)

// maxReadAttempts bounds the resize-and-retry loop when the OS keeps
// reporting an insufficient buffer. Exhaustion is a hard error; a size that
// never settles means the value is being rewritten under us.
const maxReadAttempts = 3

// initialValueBuf is the starting read buffer size. Most values fit.
const initialValueBuf = 256

// errShortBuffer is returned by sysKey.QueryValue when the supplied buffer
// is too small; n carries the required size.
var errShortBuffer = errors.New("winreg: buffer too small")

// sysKey is the seam between the portable handle logic and the OS. The
// Windows implementation wraps an advapi32 key handle; tests substitute a
// fake. Implementations return *types.Error for OS failures and
// errShortBuffer for undersized read buffers.
type sysKey interface {
	Close() error
	SubkeyNames() ([]string, error)
	ValueNames() ([]string, error)

	// QueryValue reads the named value into buf, returning the payload size
	// and declared type. When buf is too small it returns the required size
	// alongside errShortBuffer.
	QueryValue(name string, buf []byte) (n int, typ uint32, err error)

	SetValue(name string, typ uint32, data []byte) error
	DeleteValue(name string) error
	DeleteSubkey(name string) error
	DeleteTree(name string) error
	OpenSubkey(name string, access types.Access) (sysKey, error)
	Counts() (subkeys, values int, err error)
}

// Key is a scoped owner of one open registry key handle plus its
// fully-qualified path for diagnostics. The zero Key owns nothing.
type Key struct {
	sys  sysKey
	path string
}

var _ types.Key = (*Key)(nil)

func newKey(sys sysKey, path string) *Key {
	return &Key{sys: sys, path: path}
}

// Path returns the fully-qualified key path ("HKEY_LOCAL_MACHINE\...").
func (k *Key) Path() string { return k.path }

// Valid reports whether the key currently owns a handle.
func (k *Key) Valid() bool { return k != nil && k.sys != nil }

// Close releases the handle. Idempotent: second and later calls are no-ops.
func (k *Key) Close() error {
	if k == nil || k.sys == nil {
		return nil
	}
	err := k.sys.Close()
	k.sys = nil
	return err
}

// Detach transfers ownership of the handle to a new Key and leaves the
// receiver owning nothing, so a double close is structurally impossible.
func (k *Key) Detach() *Key {
	moved := &Key{sys: k.sys, path: k.path}
	k.sys = nil
	return moved
}

func (k *Key) closed() *types.Error {
	return &types.Error{Kind: types.ErrKindState, Path: k.path, Msg: "key handle is closed"}
}

// Subkeys lists the names of direct child keys.
func (k *Key) Subkeys() ([]string, error) {
	if !k.Valid() {
		return nil, k.closed()
	}
	return k.sys.SubkeyNames()
}

// Values enumerates and decodes every value in the key. Each value is read
// through the bounded retry loop, re-reading the same entry with a larger
// buffer when the OS reports insufficient space.
func (k *Key) Values() ([]types.Value, error) {
	if !k.Valid() {
		return nil, k.closed()
	}
	names, err := k.sys.ValueNames()
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0, len(names))
	buf := make([]byte, initialValueBuf)
	for _, name := range names {
		v, nbuf, err := k.readValue(name, buf)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				continue // value vanished between enumerate and read
			}
			return nil, err
		}
		buf = nbuf
		out = append(out, v)
	}
	return out, nil
}

// Value reads and decodes one named value ("" for the default value).
func (k *Key) Value(name string) (types.Value, error) {
	if !k.Valid() {
		return types.Value{}, k.closed()
	}
	v, _, err := k.readValue(name, make([]byte, initialValueBuf))
	return v, err
}

// readValue reads one value with the resize-and-retry loop. The (possibly
// grown) buffer is returned so enumeration can reuse it.
func (k *Key) readValue(name string, buf []byte) (types.Value, []byte, error) {
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		n, typ, err := k.sys.QueryValue(name, buf)
		switch {
		case err == nil:
			return value.Decode(name, types.RegType(typ), buf[:n]), buf, nil
		case errors.Is(err, errShortBuffer):
			if n <= len(buf) {
				n = len(buf) * 2
			}
			buf = make([]byte, n)
		default:
			return types.Value{}, buf, err
		}
	}
	return types.Value{}, buf, &types.Error{
		Kind: types.ErrKindState,
		Path: k.path,
		Msg:  "value size kept growing during read of " + name,
	}
}

// SetValue encodes and writes a value.
func (k *Key) SetValue(v types.Value) error {
	if !k.Valid() {
		return k.closed()
	}
	return k.sys.SetValue(v.Name, uint32(v.Type), value.Encode(v))
}

// DeleteValue removes one named value.
func (k *Key) DeleteValue(name string) error {
	if !k.Valid() {
		return k.closed()
	}
	return k.sys.DeleteValue(name)
}

// DeleteSubkey removes an empty child key. Fails if the child has children.
func (k *Key) DeleteSubkey(name string) error {
	if !k.Valid() {
		return k.closed()
	}
	return k.sys.DeleteSubkey(name)
}

// DeleteTree removes a child key and its entire subtree.
func (k *Key) DeleteTree(name string) error {
	if !k.Valid() {
		return k.closed()
	}
	return k.sys.DeleteTree(name)
}

// SubkeyExists reports whether a direct child key can be opened for read.
func (k *Key) SubkeyExists(name string) bool {
	if !k.Valid() {
		return false
	}
	sub, err := k.sys.OpenSubkey(name, types.AccessRead)
	if err != nil {
		return false
	}
	_ = sub.Close()
	return true
}

// ValueExists reports whether a named value is present.
func (k *Key) ValueExists(name string) bool {
	if !k.Valid() {
		return false
	}
	_, _, err := k.sys.QueryValue(name, nil)
	return err == nil || errors.Is(err, errShortBuffer)
}

// SubkeyCount returns the number of direct child keys.
func (k *Key) SubkeyCount() (int, error) {
	if !k.Valid() {
		return 0, k.closed()
	}
	n, _, err := k.sys.Counts()
	return n, err
}

// ValueCount returns the number of values.
func (k *Key) ValueCount() (int, error) {
	if !k.Valid() {
		return 0, k.closed()
	}
	_, n, err := k.sys.Counts()
	return n, err
}

// OpenSubkey opens a direct child key relative to this one.
func (k *Key) OpenSubkey(name string, access types.Access) (types.Key, error) {
	if !k.Valid() {
		return nil, k.closed()
	}
	sub, err := k.sys.OpenSubkey(name, access)
	if err != nil {
		return nil, err
	}
	return newKey(sub, k.path+`\`+name), nil
}
