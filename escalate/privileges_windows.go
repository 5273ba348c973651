//go:build windows

package escalate

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/regsweep/regsweep/pkg/types"
)

// winPrivileges implements Privileges over the Windows security APIs.
type winPrivileges struct{}

// NewPrivileges returns the platform privilege handler.
func NewPrivileges() Privileges { return winPrivileges{} }

var wantedPrivileges = []string{
	"SeTakeOwnershipPrivilege",
	"SeRestorePrivilege",
	"SeBackupPrivilege",
}

func (winPrivileges) EnablePrivileges() error {
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(),
		windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("opening process token: %w", err)
	}
	defer token.Close()

	for _, name := range wantedPrivileges {
		if err := enablePrivilege(token, name); err != nil {
			return fmt.Errorf("enabling %s: %w", name, err)
		}
	}
	return nil
}

func enablePrivilege(token windows.Token, name string) error {
	var luid windows.LUID
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	if err := windows.LookupPrivilegeValue(nil, namePtr, &luid); err != nil {
		return err
	}
	tp := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{{
			Luid:       luid,
			Attributes: windows.SE_PRIVILEGE_ENABLED,
		}},
	}
	return windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil)
}

func (winPrivileges) TakeOwnership(root types.RootKey, sub string) error {
	admins, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		return fmt.Errorf("building Administrators SID: %w", err)
	}
	object, err := securityObjectName(root, sub)
	if err != nil {
		return err
	}
	return windows.SetNamedSecurityInfo(object, windows.SE_REGISTRY_KEY,
		windows.OWNER_SECURITY_INFORMATION, admins, nil, nil, nil)
}

func (winPrivileges) GrantFullControl(root types.RootKey, sub string) error {
	admins, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		return fmt.Errorf("building Administrators SID: %w", err)
	}
	dacl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.KEY_ALL_ACCESS,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_GROUP,
			TrusteeValue: windows.TrusteeValueFromSID(admins),
		},
	}}, nil)
	if err != nil {
		return fmt.Errorf("building DACL: %w", err)
	}
	object, err := securityObjectName(root, sub)
	if err != nil {
		return err
	}
	return windows.SetNamedSecurityInfo(object, windows.SE_REGISTRY_KEY,
		windows.DACL_SECURITY_INFORMATION, nil, nil, dacl, nil)
}

// securityObjectName maps a root key to the object-name prefix understood
// by SetNamedSecurityInfo for SE_REGISTRY_KEY objects.
func securityObjectName(root types.RootKey, sub string) (string, error) {
	var prefix string
	switch root {
	case types.LocalMachine:
		prefix = "MACHINE"
	case types.CurrentUser:
		prefix = "CURRENT_USER"
	case types.ClassesRoot:
		prefix = "CLASSES_ROOT"
	case types.Users:
		prefix = "USERS"
	default:
		return "", fmt.Errorf("root %s has no security object name", root)
	}
	if sub == "" {
		return prefix, nil
	}
	return prefix + `\` + sub, nil
}
