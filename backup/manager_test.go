package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/regsweep/regsweep/internal/regtext"
	"github.com/regsweep/regsweep/internal/testutil"
	"github.com/regsweep/regsweep/pkg/types"
)

func newManager(t *testing.T, reg types.Registry) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), reg, zerolog.Nop())
}

func TestCreate_SnapshotsKeySubtree(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\Vendor\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})
	reg.Seed(t, types.CurrentUser, `SOFTWARE\Vendor\App\Sub`,
		types.Value{Name: "n", Type: types.REG_DWORD, Data: types.DWordData(1)})

	m := newManager(t, reg)
	rec, failed, err := m.Create([]types.Issue{{
		KeyPath: `HKEY_CURRENT_USER\SOFTWARE\Vendor\App`,
	}}, "before clean")
	require.NoError(t, err)
	require.Empty(t, failed)
	require.Equal(t, 2, rec.KeyCount)
	require.Equal(t, 2, rec.ValueCount)
	require.Equal(t, "before clean", rec.Description)

	data, err := os.ReadFile(rec.Path)
	require.NoError(t, err)
	entries, err := regtext.Parse(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, `HKEY_CURRENT_USER\SOFTWARE\Vendor\App`, entries[0].Path)
	require.Equal(t, `HKEY_CURRENT_USER\SOFTWARE\Vendor\App\Sub`, entries[1].Path)
}

func TestCreate_TimestampNamedArtifact(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	m := newManager(t, reg)
	m.now = func() time.Time { return time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC) }

	rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
	require.NoError(t, err)
	require.Equal(t, "20260830T153000Z-"+rec.ID[:8]+".reg", filepath.Base(rec.Path))

	// the sidecar sits next to the artifact under the same name
	_, err = os.Stat(filepath.Join(m.Dir(), "20260830T153000Z-"+rec.ID[:8]+".toml"))
	require.NoError(t, err)
}

func TestCreate_ValueIssueCapturesSingleValue(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\Run`,
		types.Value{Name: "Stale", Type: types.REG_SZ, Data: types.StringData(`C:\gone.exe`)},
		types.Value{Name: "Keep", Type: types.REG_SZ, Data: types.StringData(`C:\ok.exe`)})

	m := newManager(t, reg)
	rec, failed, err := m.Create([]types.Issue{{
		KeyPath:    `HKEY_CURRENT_USER\SOFTWARE\Run`,
		ValueName:  "Stale",
		ValueIssue: true,
	}}, "")
	require.NoError(t, err)
	require.Empty(t, failed)
	require.Equal(t, 1, rec.ValueCount)

	data, err := os.ReadFile(rec.Path)
	require.NoError(t, err)
	entries, err := regtext.Parse(data)
	require.NoError(t, err)
	require.Len(t, entries[0].Values, 1)
	require.Equal(t, "Stale", entries[0].Values[0].Name)
}

func TestCreate_ReportsUnreadableTargets(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\Ok`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	reg.Seed(t, types.CurrentUser, `SOFTWARE\Opaque`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})
	reg.DenyRead[`HKEY_CURRENT_USER\SOFTWARE\Opaque`] = true

	m := newManager(t, reg)
	rec, failed, err := m.Create([]types.Issue{
		{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\Missing`},
		{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\Ok`},
		{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\Opaque`},
	}, "")
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Contains(t, failed, 0)
	require.Contains(t, failed, 2)
	require.ErrorIs(t, failed[2], types.ErrAccessDenied)
	require.Equal(t, 1, rec.KeyCount)
}

func TestCreate_AllTargetsUnreadableIsError(t *testing.T) {
	m := newManager(t, testutil.NewFakeRegistry())
	_, failed, err := m.Create([]types.Issue{
		{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\Missing`},
	}, "")
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrBackupFailed)
	require.Len(t, failed, 1)
}

func TestRestore_RewritesDeletedKey(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")},
		types.Value{Name: "n", Type: types.REG_DWORD, Data: types.DWordData(9)})

	m := newManager(t, reg)
	rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
	require.NoError(t, err)

	// simulate the clean
	parent, err := reg.Open(types.CurrentUser, "SOFTWARE", types.AccessAll)
	require.NoError(t, err)
	require.NoError(t, parent.DeleteTree("App"))
	parent.Close()
	require.False(t, reg.HasKey(types.CurrentUser, `SOFTWARE\App`))

	require.NoError(t, m.Restore(rec.ID))
	require.True(t, reg.HasKey(types.CurrentUser, `SOFTWARE\App`))

	k, err := reg.Open(types.CurrentUser, `SOFTWARE\App`, types.AccessRead)
	require.NoError(t, err)
	defer k.Close()
	v, err := k.Value("n")
	require.NoError(t, err)
	d, ok := v.AsDWord()
	require.True(t, ok)
	require.Equal(t, uint32(9), d)
}

func TestRestore_ByUnambiguousPrefix(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	m := newManager(t, reg)
	rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
	require.NoError(t, err)

	require.NoError(t, m.Restore(rec.ID[:8]))
}

func TestRestore_UnknownID(t *testing.T) {
	m := newManager(t, testutil.NewFakeRegistry())
	err := m.Restore("deadbeef")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestList_NewestFirstAndSkipsCorrupt(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	m := newManager(t, reg)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		m.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "junk.toml"), []byte("not = [toml"), 0o644))

	recs, err := m.List()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, ids[2], recs[0].ID)
	require.Equal(t, ids[0], recs[2].ID)
}

func TestPrune_KeepsNewest(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	m := newManager(t, reg)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var newest string
	for i := 0; i < 4; i++ {
		m.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
		require.NoError(t, err)
		newest = rec.ID
	}

	removed, err := m.Prune(2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	recs, err := m.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, newest, recs[0].ID)
}

func TestPrune_CorruptSidecarDoesNotShieldArtifact(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\App`,
		types.Value{Name: "v", Type: types.REG_SZ, Data: types.StringData("x")})

	m := newManager(t, reg)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var paths []string
	for i := 0; i < 3; i++ {
		m.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		rec, _, err := m.Create([]types.Issue{{KeyPath: `HKEY_CURRENT_USER\SOFTWARE\App`}}, "")
		require.NoError(t, err)
		paths = append(paths, rec.Path)
	}

	// corrupt the oldest backup's sidecar so List can no longer see it
	oldestMeta := strings.TrimSuffix(paths[0], ".reg") + ".toml"
	require.NoError(t, os.WriteFile(oldestMeta, []byte("not = [toml"), 0o644))

	removed, err := m.Prune(2)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	// the corrupt-sidecar backup was still the oldest, so it went first
	_, err = os.Stat(paths[0])
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldestMeta)
	require.True(t, os.IsNotExist(err))
	for _, p := range paths[1:] {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
}
