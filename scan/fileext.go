package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/probe"
	"github.com/regsweep/regsweep/protect"
)

// Extensions every Windows install registers; never worth flagging.
var systemExtensions = map[string]bool{
	".exe": true, ".dll": true, ".bat": true, ".cmd": true, ".com": true,
	".lnk": true, ".msi": true, ".txt": true, ".doc": true, ".docx": true,
	".pdf": true, ".jpg": true, ".png": true, ".gif": true, ".htm": true,
	".html": true, ".xml": true, ".zip": true, ".rar": true, ".7z": true,
}

// FileExtension finds extension keys under HKEY_CLASSES_ROOT whose ProgID
// no longer exists or whose open command points at a missing program.
type FileExtension struct {
	base
	deps Deps
}

func NewFileExtension(deps Deps) *FileExtension {
	return &FileExtension{base: newBase("fileext", types.CategoryFileExtension), deps: deps}
}

func (s *FileExtension) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	root := openRead(s.deps.Registry, types.ClassesRoot, "")
	if root == nil {
		return issues, nil
	}
	names, err := root.Subkeys()
	if err != nil {
		root.Close()
		return issues, nil
	}

	for _, name := range names {
		if cancelled(ctx) {
			root.Close()
			return issues, cancelErr(ctx)
		}
		if name == "" || name[0] != '.' || systemExtensions[strings.ToLower(name)] {
			continue
		}
		keyPath := types.JoinKeyPath(types.ClassesRoot, name)
		s.report(progress, keyPath, len(issues))
		if protect.IsProtectedKey(keyPath) {
			continue
		}

		k, err := root.OpenSubkey(name, types.AccessRead)
		if err != nil {
			continue
		}
		if is, found := s.check(k, name, keyPath); found {
			issues = append(issues, is)
		}
		k.Close()
	}
	root.Close()
	return issues, nil
}

func (s *FileExtension) check(k types.Key, ext, keyPath string) (types.Issue, bool) {
	progID, ok := stringValue(k, "")
	if !ok || progID == "" {
		// extension with no ProgID association is legal
		return types.Issue{}, false
	}

	if !s.progIDExists(progID) {
		return s.issue(
			keyPath, "",
			fmt.Sprintf("Extension %s points at a missing ProgID", ext),
			fmt.Sprintf("missing ProgID: %s", progID),
			types.SeverityMedium, true,
		), true
	}
	if !s.openCommandValid(progID) {
		return s.issue(
			keyPath, "",
			fmt.Sprintf("Extension %s has a broken open command", ext),
			fmt.Sprintf("ProgID %s: shell\\open\\command target missing", progID),
			types.SeverityLow, true,
		), true
	}
	return types.Issue{}, false
}

func (s *FileExtension) progIDExists(progID string) bool {
	k := openRead(s.deps.Registry, types.ClassesRoot, progID)
	if k == nil {
		return false
	}
	k.Close()
	return true
}

// openCommandValid only fails when an open command exists, parses, and its
// program is missing. Absent commands are fine.
func (s *FileExtension) openCommandValid(progID string) bool {
	k := openRead(s.deps.Registry, types.ClassesRoot, progID+`\shell\open\command`)
	if k == nil {
		return true
	}
	cmd, ok := stringValue(k, "")
	k.Close()
	if !ok || cmd == "" {
		return true
	}
	path, ok := probe.ExtractCommandPath(cmd, s.deps.Files)
	if !ok {
		return true
	}
	return s.deps.Files.FileExists(path)
}
