//go:build !windows

package escalate

import "github.com/regsweep/regsweep/pkg/types"

type stubPrivileges struct{}

// NewPrivileges returns the platform privilege handler. Off Windows every
// call fails, which makes the chain fall straight through to the delete
// retry and the reboot fallback.
func NewPrivileges() Privileges { return stubPrivileges{} }

func (stubPrivileges) EnablePrivileges() error {
	return types.E(types.ErrKindState, 0, "", "token privileges require windows")
}

func (stubPrivileges) TakeOwnership(root types.RootKey, sub string) error {
	return types.E(types.ErrKindState, 0, types.JoinKeyPath(root, sub), "ownership changes require windows")
}

func (stubPrivileges) GrantFullControl(root types.RootKey, sub string) error {
	return types.E(types.ErrKindState, 0, types.JoinKeyPath(root, sub), "DACL changes require windows")
}
