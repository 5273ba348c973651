package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/probe"
	"github.com/regsweep/regsweep/protect"
)

var uninstallPaths = []struct {
	root types.RootKey
	sub  string
}{
	{types.LocalMachine, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
	{types.LocalMachine, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	{types.CurrentUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
}

// Uninstall finds uninstall entries whose uninstaller and install location
// are both gone, meaning the program was removed without cleaning up after
// itself.
type Uninstall struct {
	base
	deps Deps
}

func NewUninstall(deps Deps) *Uninstall {
	return &Uninstall{base: newBase("uninstall", types.CategoryUninstallEntry), deps: deps}
}

func (s *Uninstall) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	for _, loc := range uninstallPaths {
		parent := openRead(s.deps.Registry, loc.root, loc.sub)
		if parent == nil {
			continue
		}
		subkeys, err := parent.Subkeys()
		if err != nil {
			parent.Close()
			continue
		}

		for _, name := range subkeys {
			if cancelled(ctx) {
				parent.Close()
				return issues, cancelErr(ctx)
			}
			fullPath := types.JoinKeyPath(loc.root, loc.sub) + `\` + name
			s.report(progress, fullPath, len(issues))

			if protect.IsProtectedKey(fullPath) {
				continue
			}
			k, err := parent.OpenSubkey(name, types.AccessRead)
			if err != nil {
				continue
			}
			if is, found := s.check(k, fullPath); found {
				issues = append(issues, is)
			}
			k.Close()
		}
		parent.Close()
	}
	return issues, nil
}

func (s *Uninstall) check(k types.Key, fullPath string) (types.Issue, bool) {
	// System components and Windows update entries are managed by the OS.
	if sc, ok := dwordValue(k, "SystemComponent"); ok && sc == 1 {
		return types.Issue{}, false
	}
	if rt, ok := stringValue(k, "ReleaseType"); ok {
		if strings.Contains(rt, "Update") || strings.Contains(rt, "Hotfix") {
			return types.Issue{}, false
		}
	}
	if s.isValidEntry(k) {
		return types.Issue{}, false
	}

	name, ok := stringValue(k, "DisplayName")
	if !ok || name == "" {
		name = "(unnamed)"
	}
	return s.issue(
		fullPath, "",
		fmt.Sprintf("Uninstalled program: %s", name),
		"the uninstall entry points at files that no longer exist",
		types.SeverityMedium, false,
	), true
}

// isValidEntry reports whether the entry still points at anything real: a
// display name plus a reachable uninstaller or install directory.
func (s *Uninstall) isValidEntry(k types.Key) bool {
	if _, ok := stringValue(k, "DisplayName"); !ok {
		return false
	}
	for _, valueName := range []string{"UninstallString", "QuietUninstallString"} {
		if cmd, ok := stringValue(k, valueName); ok {
			if path, ok := probe.ExtractCommandPath(cmd, s.deps.Files); ok && s.deps.Files.FileExists(path) {
				return true
			}
		}
	}
	if loc, ok := stringValue(k, "InstallLocation"); ok && s.deps.Files.DirExists(loc) {
		return true
	}
	return false
}
