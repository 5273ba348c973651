package escalate

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/regsweep/regsweep/internal/testutil"
	"github.com/regsweep/regsweep/pkg/types"
)

// recordingPrivileges logs call order and answers from a script.
type recordingPrivileges struct {
	calls []string
	fail  bool
}

func (p *recordingPrivileges) err(step string) error {
	p.calls = append(p.calls, step)
	if p.fail {
		return types.E(types.ErrKindAccessDenied, 5, "", step+" refused")
	}
	return nil
}

func (p *recordingPrivileges) EnablePrivileges() error { return p.err("enable") }
func (p *recordingPrivileges) TakeOwnership(types.RootKey, string) error {
	return p.err("ownership")
}
func (p *recordingPrivileges) GrantFullControl(types.RootKey, string) error {
	return p.err("dacl")
}

func TestForceDeleteKey_StepOrder(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Victim\Child`).Close()

	priv := &recordingPrivileges{}
	chain := NewChain(priv, reg, zerolog.Nop())

	res, err := chain.ForceDeleteKey(types.CurrentUser, `SOFTWARE\Victim`)
	require.NoError(t, err)
	require.Equal(t, ResultDeleted, res)
	require.Equal(t, []string{"enable", "ownership", "dacl"}, priv.calls)
	require.False(t, reg.HasKey(types.CurrentUser, `SOFTWARE\Victim`))
}

func TestForceDeleteKey_DeletesNestedTree(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Victim\a\b\c`).Close()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\Victim\x`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("d")})

	chain := NewChain(&recordingPrivileges{}, reg, zerolog.Nop())
	res, err := chain.ForceDeleteKey(types.CurrentUser, `SOFTWARE\Victim`)
	require.NoError(t, err)
	require.Equal(t, ResultDeleted, res)
	require.False(t, reg.HasKey(types.CurrentUser, `SOFTWARE\Victim`))
}

func TestForceDeleteKey_SchedulesRebootWhenStillDenied(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Locked`).Close()
	reg.MustCreate(t, types.LocalMachine, runOncePath).Close()
	reg.DenyWrite[`HKEY_CURRENT_USER\SOFTWARE\Locked`] = true

	priv := &recordingPrivileges{fail: true} // escalation never helps
	chain := NewChain(priv, reg, zerolog.Nop())

	res, err := chain.ForceDeleteKey(types.CurrentUser, `SOFTWARE\Locked`)
	require.NoError(t, err)
	require.Equal(t, ResultScheduled, res)
	require.Equal(t, []string{"enable", "ownership", "dacl"}, priv.calls)

	// the key survives until reboot
	require.True(t, reg.HasKey(types.CurrentUser, `SOFTWARE\Locked`))

	runOnce, err := reg.Open(types.LocalMachine, runOncePath, types.AccessRead)
	require.NoError(t, err)
	defer runOnce.Close()
	values, err := runOnce.Values()
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.True(t, strings.HasPrefix(values[0].Name, "regsweep_delete_"))
	cmd, ok := values[0].AsString()
	require.True(t, ok)
	require.Equal(t, `reg delete "HKCU\SOFTWARE\Locked" /f`, cmd)
}

func TestForceDeleteKey_ScheduleFailsWithoutRunOnce(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Locked`).Close()
	reg.DenyWrite[`HKEY_CURRENT_USER\SOFTWARE\Locked`] = true
	// no RunOnce key seeded

	chain := NewChain(&recordingPrivileges{fail: true}, reg, zerolog.Nop())
	res, err := chain.ForceDeleteKey(types.CurrentUser, `SOFTWARE\Locked`)
	require.Error(t, err)
	require.Equal(t, ResultScheduled, res)
}

func TestForceDeleteValue(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	chain := NewChain(&recordingPrivileges{}, reg, zerolog.Nop())
	require.NoError(t, chain.ForceDeleteValue(types.CurrentUser, `SOFTWARE\App`, "v"))

	k, err := reg.Open(types.CurrentUser, `SOFTWARE\App`, types.AccessRead)
	require.NoError(t, err)
	defer k.Close()
	require.False(t, k.ValueExists("v"))
}
