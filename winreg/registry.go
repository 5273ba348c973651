package winreg

import "github.com/regsweep/regsweep/pkg/types"

// Open opens an existing key under root with the requested access.
func Open(root types.RootKey, path string, access types.Access) (*Key, error) {
	sys, err := openSysKey(root, path, access)
	if err != nil {
		return nil, err
	}
	return newKey(sys, types.JoinKeyPath(root, path)), nil
}

// Create opens a key under root, creating it if missing.
func Create(root types.RootKey, path string, access types.Access) (*Key, error) {
	sys, err := createSysKey(root, path, access)
	if err != nil {
		return nil, err
	}
	return newKey(sys, types.JoinKeyPath(root, path)), nil
}

// Live is the live-registry implementation of types.Registry.
type Live struct{}

var _ types.Registry = Live{}

func (Live) Open(root types.RootKey, path string, access types.Access) (types.Key, error) {
	return Open(root, path, access)
}

func (Live) Create(root types.RootKey, path string, access types.Access) (types.Key, error) {
	return Create(root, path, access)
}
