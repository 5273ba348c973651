package escalate

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regsweep/regsweep/pkg/types"
)

// runOncePath is where delete-on-reboot commands are registered.
const runOncePath = `SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`

// Privileges adjusts token privileges and key security descriptors. The
// Windows implementation talks to the ACL APIs; everywhere else the calls
// fail cleanly and the chain falls through to scheduling.
type Privileges interface {
	// EnablePrivileges turns on SeTakeOwnership, SeRestore and SeBackup
	// for the current process token.
	EnablePrivileges() error
	// TakeOwnership makes Administrators the owner of the key.
	TakeOwnership(root types.RootKey, sub string) error
	// GrantFullControl rewrites the key's DACL to give Administrators
	// full access, inherited by subkeys and values.
	GrantFullControl(root types.RootKey, sub string) error
}

// Result says how a forced delete concluded.
type Result int

const (
	// ResultDeleted means the target was removed after escalation.
	ResultDeleted Result = iota
	// ResultScheduled means the target survived every attempt and a
	// delete command was registered for the next boot.
	ResultScheduled
)

// Chain runs the escalation steps in order.
type Chain struct {
	priv Privileges
	reg  types.Registry
	log  zerolog.Logger
}

func NewChain(priv Privileges, reg types.Registry, log zerolog.Logger) *Chain {
	return &Chain{priv: priv, reg: reg, log: log.With().Str("component", "escalate").Logger()}
}

// ForceDeleteKey escalates until the key subtree is gone or scheduled for
// deletion at next boot. Only the final fallback failing makes this an
// error.
func (c *Chain) ForceDeleteKey(root types.RootKey, sub string) (Result, error) {
	full := types.JoinKeyPath(root, sub)
	c.escalate(root, sub, full)

	if err := c.deleteKeyRecursive(root, sub); err != nil {
		c.log.Warn().Str("key", full).Err(err).Msg("delete still failing, scheduling for reboot")
		if serr := c.ScheduleDeleteOnReboot(root, sub); serr != nil {
			return ResultScheduled, serr
		}
		return ResultScheduled, nil
	}
	c.log.Info().Str("key", full).Msg("force-deleted key")
	return ResultDeleted, nil
}

// ForceDeleteValue escalates access on the owning key, then deletes the
// value.
func (c *Chain) ForceDeleteValue(root types.RootKey, sub, valueName string) error {
	c.escalate(root, sub, types.JoinKeyPath(root, sub))

	k, err := c.reg.Open(root, sub, types.AccessSetValue)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.DeleteValue(valueName)
}

// escalate runs the privilege and security-descriptor steps. Failures are
// logged and swallowed: the delete retry decides whether they mattered.
func (c *Chain) escalate(root types.RootKey, sub, full string) {
	if err := c.priv.EnablePrivileges(); err != nil {
		c.log.Debug().Err(err).Msg("could not enable privileges")
	}
	if err := c.priv.TakeOwnership(root, sub); err != nil {
		c.log.Debug().Str("key", full).Err(err).Msg("could not take ownership")
	}
	if err := c.priv.GrantFullControl(root, sub); err != nil {
		c.log.Debug().Str("key", full).Err(err).Msg("could not rewrite DACL")
	}
}

// deleteKeyRecursive deletes children depth-first, falling back to a
// recursive tree delete per child, then removes the key itself.
func (c *Chain) deleteKeyRecursive(root types.RootKey, sub string) error {
	k, err := c.reg.Open(root, sub, types.AccessRead|types.AccessWrite|types.AccessDelete)
	if err != nil {
		return err
	}
	names, err := k.Subkeys()
	if err != nil {
		k.Close()
		return err
	}
	for _, name := range names {
		if derr := c.deleteKeyRecursive(root, sub+`\`+name); derr != nil {
			if terr := k.DeleteTree(name); terr != nil {
				k.Close()
				return terr
			}
		}
	}
	k.Close()

	parent, leaf := splitParent(sub)
	pk, err := c.reg.Open(root, parent, types.AccessWrite|types.AccessDelete)
	if err != nil {
		return err
	}
	defer pk.Close()
	if err := pk.DeleteSubkey(leaf); err != nil {
		return pk.DeleteTree(leaf)
	}
	return nil
}

// ScheduleDeleteOnReboot registers a reg.exe delete command under RunOnce
// so the key disappears on the next boot, before whatever holds it now is
// running again.
func (c *Chain) ScheduleDeleteOnReboot(root types.RootKey, sub string) error {
	command := fmt.Sprintf(`reg delete "%s\%s" /f`, root.Abbrev(), sub)
	valueName := fmt.Sprintf("regsweep_delete_%x", hashPath(sub))

	k, err := c.reg.Open(types.LocalMachine, runOncePath, types.AccessSetValue)
	if err != nil {
		return &types.Error{Kind: types.ErrKindAccessDenied, Path: types.JoinKeyPath(root, sub),
			Msg: "cannot schedule delete on reboot", Err: err}
	}
	defer k.Close()

	err = k.SetValue(types.Value{
		Name: valueName,
		Type: types.REG_SZ,
		Data: types.StringData(command),
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("key", types.JoinKeyPath(root, sub)).Str("command", command).
		Msg("scheduled delete on reboot")
	return nil
}

func hashPath(sub string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(sub)))
	return h.Sum64()
}

func splitParent(sub string) (parent, leaf string) {
	i := strings.LastIndex(sub, `\`)
	if i == -1 {
		return "", sub
	}
	return sub[:i], sub[i+1:]
}
