package scan

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/regsweep/regsweep/internal/testutil"
	"github.com/regsweep/regsweep/pkg/types"
)

func strVal(name, s string) types.Value {
	return types.Value{Name: name, Type: types.REG_SZ, Data: types.StringData(s)}
}

func dwVal(name string, d uint32) types.Value {
	return types.Value{Name: name, Type: types.REG_DWORD, Data: types.DWordData(d)}
}

func binVal(name string, b ...byte) types.Value {
	return types.Value{Name: name, Type: types.REG_BINARY, Data: types.BinaryData(b)}
}

func testDeps(reg *testutil.FakeRegistry, files *testutil.FakeFileProber, svcs *testutil.FakeServiceProber) Deps {
	if files == nil {
		files = testutil.NewFakeFileProber()
	}
	if svcs == nil {
		svcs = testutil.NewFakeServiceProber()
	}
	return Deps{Registry: reg, Files: files, Services: svcs, Log: zerolog.Nop()}
}

const uninstallCU = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

func TestUninstall(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Apps\good\unins.exe`)

	// orphaned: uninstaller gone, no install dir
	reg.Seed(t, types.CurrentUser, uninstallCU+`\GoneApp`,
		strVal("DisplayName", "Gone App"),
		strVal("UninstallString", `"C:\Apps\gone\unins.exe" /SILENT`))
	// healthy: uninstaller still on disk
	reg.Seed(t, types.CurrentUser, uninstallCU+`\GoodApp`,
		strVal("DisplayName", "Good App"),
		strVal("UninstallString", `"C:\Apps\good\unins.exe"`))
	// system component, skipped regardless of state
	reg.Seed(t, types.CurrentUser, uninstallCU+`\SysComp`,
		strVal("DisplayName", "Sys"),
		dwVal("SystemComponent", 1))
	// windows update entry, skipped
	reg.Seed(t, types.CurrentUser, uninstallCU+`\KB999`,
		strVal("DisplayName", "KB999"),
		strVal("ReleaseType", "Security Update"))
	// valid through install location alone
	files.AddDir(`C:\Apps\located`)
	reg.Seed(t, types.CurrentUser, uninstallCU+`\Located`,
		strVal("DisplayName", "Located"),
		strVal("InstallLocation", `C:\Apps\located`))

	s := NewUninstall(testDeps(reg, files, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, types.CategoryUninstallEntry, issues[0].Category)
	require.Equal(t, types.SeverityMedium, issues[0].Severity)
	require.False(t, issues[0].ValueIssue)
	require.Contains(t, issues[0].KeyPath, "GoneApp")
	require.Contains(t, issues[0].Description, "Gone App")
}

const runCU = `SOFTWARE\Microsoft\Windows\CurrentVersion\Run`

func TestStartup(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Tools\ok.exe`)

	reg.Seed(t, types.CurrentUser, runCU,
		strVal("Stale", `C:\Tools\gone.exe /tray`),
		strVal("Healthy", `"C:\Tools\ok.exe"`),
		strVal("Path", `C:\Tools\alsogone.exe`), // protected value name
		strVal("SystemThing", `C:\Windows\System32\missing.exe`), // critical keyword path
		dwVal("NotAString", 1))

	s := NewStartup(testDeps(reg, files, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "Stale", issues[0].ValueName)
	require.True(t, issues[0].ValueIssue)
	require.Equal(t, types.JoinKeyPath(types.CurrentUser, runCU), issues[0].KeyPath)
}

func TestSharedDll(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Shared\used.dll`, `C:\Shared\unused.dll`)

	reg.Seed(t, types.LocalMachine, sharedDllsPath,
		dwVal(`C:\Shared\missing.dll`, 3),
		dwVal(`C:\Shared\unused.dll`, 0),
		dwVal(`C:\Shared\used.dll`, 2),
		dwVal(`C:\Windows\System32\kernel32.dll`, 0)) // critical keyword, skipped

	s := NewSharedDll(testDeps(reg, files, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, `C:\Shared\missing.dll`, issues[0].ValueName)
	require.Equal(t, `C:\Shared\unused.dll`, issues[1].ValueName)
	for _, is := range issues {
		require.Equal(t, types.CategorySharedDll, is.Category)
		require.Equal(t, types.SeverityLow, is.Severity)
		require.True(t, is.ValueIssue)
	}
}

func TestServices(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Svc\ok.exe`)
	svcs := testutil.NewFakeServiceProber("RunningAnyway")

	seed := func(name string, vals ...types.Value) {
		reg.Seed(t, types.LocalMachine, servicesPath+`\`+name, vals...)
	}
	seed("GoneService",
		dwVal("Type", 16),
		strVal("ImagePath", `"C:\Svc\gone.exe" -k net`),
		dwVal("Start", 2))
	seed("HealthyService",
		dwVal("Type", 16),
		strVal("ImagePath", `C:\Svc\ok.exe`))
	seed("KernelDriver",
		dwVal("Type", 1),
		strVal("ImagePath", `C:\Svc\driver.sys`))
	seed("DisabledService",
		dwVal("Type", 16),
		strVal("ImagePath", `C:\Svc\disabled.exe`),
		dwVal("Start", 4))
	seed("RunningAnyway",
		dwVal("Type", 16),
		strVal("ImagePath", `C:\Svc\phantom.exe`))

	s := NewServices(testDeps(reg, files, svcs))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].KeyPath, "GoneService")
	require.Equal(t, "ImagePath", issues[0].ValueName)
	require.Contains(t, issues[0].Details, `C:\Svc\gone.exe`)
}

func TestExtractServicePath(t *testing.T) {
	t.Setenv("SystemRoot", `C:\Windows`)

	cases := []struct {
		in, want string
	}{
		{`\SystemRoot\System32\drivers\x.sys`, `C:\Windows\System32\drivers\x.sys`},
		{`"C:\Program Files\Svc\s.exe" -k`, `C:\Program Files\Svc\s.exe`},
		{`%SystemRoot%\System32\svchost.exe -k netsvcs`, `C:\Windows\System32\svchost.exe`},
		{`C:\Svc\plain.exe`, `C:\Svc\plain.exe`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, extractServicePath(tc.in), "input %q", tc.in)
	}
}

func TestEmptyKeys(t *testing.T) {
	reg := testutil.NewFakeRegistry()

	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\EmptyVendor`).Close()
	reg.Seed(t, types.CurrentUser, `SOFTWARE\BusyVendor`, strVal("v", "x"))
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Parent\Nested\Empty`).Close()
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\Microsoft\WouldBeEmpty`).Close()
	// the empty leaf f sits past the depth cap and is never visited
	reg.MustCreate(t, types.CurrentUser, `SOFTWARE\a\b\c\d\e\f`).Close()

	s := NewEmptyKeys(testDeps(reg, nil, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	paths := testutil.SortedIssuePaths(issues)
	require.Len(t, paths, 2)
	require.Contains(t, paths, `HKEY_CURRENT_USER\SOFTWARE\EmptyVendor`)
	require.Contains(t, paths, `HKEY_CURRENT_USER\SOFTWARE\Parent\Nested\Empty`)
}

func TestMRU(t *testing.T) {
	reg := testutil.NewFakeRegistry()

	runMRU := `SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\RunMRU`
	many := []types.Value{strVal("MRUList", "abcdefghijk")}
	for i := 0; i < 11; i++ {
		many = append(many, strVal(string(rune('a'+i)), "cmd"))
	}
	reg.Seed(t, types.CurrentUser, runMRU, many...)

	// under threshold even counting the binary entry
	reg.Seed(t, types.CurrentUser,
		`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\TypedPaths`,
		strVal("url1", "x"), binVal("blob", 1, 2))

	// Office nesting: Office\Word\File MRU with many entries
	office := `SOFTWARE\Microsoft\Office\Word\File MRU`
	var officeVals []types.Value
	for i := 0; i < 12; i++ {
		officeVals = append(officeVals, strVal(string(rune('a'+i)), "doc"))
	}
	reg.Seed(t, types.CurrentUser, office, officeVals...)

	s := NewMRU(testDeps(reg, nil, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	paths := testutil.SortedIssuePaths(issues)
	require.Len(t, paths, 2)
	require.Contains(t, paths, types.JoinKeyPath(types.CurrentUser, runMRU))
	require.Contains(t, paths, types.JoinKeyPath(types.CurrentUser, office))
}

func TestFileExtension(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Viewer\view.exe`)

	// extension whose ProgID is missing entirely
	reg.Seed(t, types.ClassesRoot, ".orphan", strVal("", "OrphanFile"))
	// extension whose ProgID exists but open command target is gone
	reg.Seed(t, types.ClassesRoot, ".broken", strVal("", "BrokenFile"))
	reg.MustCreate(t, types.ClassesRoot, "BrokenFile").Close()
	reg.Seed(t, types.ClassesRoot, `BrokenFile\shell\open\command`,
		strVal("", `"C:\Gone\edit.exe" "%1"`))
	// healthy extension
	reg.Seed(t, types.ClassesRoot, ".fine", strVal("", "FineFile"))
	reg.MustCreate(t, types.ClassesRoot, "FineFile").Close()
	reg.Seed(t, types.ClassesRoot, `FineFile\shell\open\command`,
		strVal("", `"C:\Viewer\view.exe" "%1"`))
	// system extension is never flagged
	reg.Seed(t, types.ClassesRoot, ".txt", strVal("", "NowhereFile"))
	// extension without association is fine
	reg.MustCreate(t, types.ClassesRoot, ".bare").Close()

	s := NewFileExtension(testDeps(reg, files, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	byPath := map[string]types.Issue{}
	for _, is := range issues {
		byPath[is.KeyPath] = is
	}
	orphan := byPath[`HKEY_CLASSES_ROOT\.orphan`]
	require.Equal(t, types.SeverityMedium, orphan.Severity)
	require.Contains(t, orphan.Details, "OrphanFile")
	broken := byPath[`HKEY_CLASSES_ROOT\.broken`]
	require.Equal(t, types.SeverityLow, broken.Severity)
}

func TestAppPath(t *testing.T) {
	reg := testutil.NewFakeRegistry()
	files := testutil.NewFakeFileProber(`C:\Apps\here.exe`)

	reg.Seed(t, types.LocalMachine, appPathsKey+`\gone.exe`,
		strVal("", `"C:\Apps\gone.exe"`))
	reg.Seed(t, types.LocalMachine, appPathsKey+`\here.exe`,
		strVal("", `C:\Apps\here.exe`))

	s := NewAppPath(testDeps(reg, files, nil))
	issues, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Description, "gone.exe")
	require.False(t, issues[0].ValueIssue)
}
