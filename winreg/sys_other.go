//go:build !windows

package winreg

import "github.com/regsweep/regsweep/pkg/types"

// The live registry only exists on Windows. Non-Windows builds keep the
// package compiling (tests exercise the portable logic through fakes) but
// fail every open.

func openSysKey(root types.RootKey, path string, _ types.Access) (sysKey, error) {
	return nil, &types.Error{
		Kind: types.ErrKindState,
		Path: types.JoinKeyPath(root, path),
		Msg:  "live registry access requires windows",
	}
}

func createSysKey(root types.RootKey, path string, access types.Access) (sysKey, error) {
	return openSysKey(root, path, access)
}
