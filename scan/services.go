package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/probe"
)

const servicesPath = `SYSTEM\CurrentControlSet\Services`

// service Type values for drivers, skipped by the scan
const (
	serviceKernelDriver     = 1
	serviceFileSystemDriver = 2
	serviceAdapter          = 8

	serviceStartDisabled = 4
)

// Services finds service registrations whose binary no longer exists.
// Driver entries, disabled services and currently running services are
// never flagged.
type Services struct {
	base
	deps Deps
}

func NewServices(deps Deps) *Services {
	return &Services{base: newBase("services", types.CategoryServices), deps: deps}
}

func (s *Services) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	parent := openRead(s.deps.Registry, types.LocalMachine, servicesPath)
	if parent == nil {
		return issues, nil
	}
	defer parent.Close()

	names, err := parent.Subkeys()
	if err != nil {
		return issues, nil
	}

	for _, name := range names {
		if cancelled(ctx) {
			return issues, cancelErr(ctx)
		}
		fullPath := types.JoinKeyPath(types.LocalMachine, servicesPath) + `\` + name
		s.report(progress, fullPath, len(issues))

		k, err := parent.OpenSubkey(name, types.AccessRead)
		if err != nil {
			continue
		}
		if is, found := s.check(k, name, fullPath); found {
			issues = append(issues, is)
		}
		k.Close()
	}
	return issues, nil
}

func (s *Services) check(k types.Key, name, fullPath string) (types.Issue, bool) {
	typ, ok := dwordValue(k, "Type")
	if !ok {
		return types.Issue{}, false
	}
	if typ == serviceKernelDriver || typ == serviceFileSystemDriver || typ == serviceAdapter {
		return types.Issue{}, false
	}

	imagePath, ok := stringValue(k, "ImagePath")
	if !ok || imagePath == "" {
		return types.Issue{}, false
	}
	binPath := extractServicePath(imagePath)
	if binPath == "" || s.deps.Files.FileExists(binPath) {
		return types.Issue{}, false
	}
	if start, ok := dwordValue(k, "Start"); ok && start == serviceStartDisabled {
		return types.Issue{}, false
	}
	if s.deps.Services != nil && s.deps.Services.ServiceRunning(name) {
		return types.Issue{}, false
	}

	return s.issue(
		fullPath, "ImagePath",
		fmt.Sprintf("Service binary not found: %s", name),
		fmt.Sprintf("path: %s", binPath),
		types.SeverityMedium, true,
	), true
}

// extractServicePath normalizes a service ImagePath: the \SystemRoot\
// prefix becomes %SystemRoot%, quotes are stripped, and arguments after
// the .exe/.sys name are dropped.
func extractServicePath(imagePath string) string {
	path := imagePath
	if len(path) > 12 && strings.EqualFold(path[:12], `\SystemRoot\`) {
		path = `%SystemRoot%\` + path[12:]
	}
	if path != "" && path[0] == '"' {
		if end := strings.IndexByte(path[1:], '"'); end != -1 {
			path = path[1 : end+1]
		}
	}
	lower := strings.ToLower(path)
	for _, ext := range []string{".exe", ".sys"} {
		if pos := strings.Index(lower, ext); pos != -1 {
			path = path[:pos+len(ext)]
			break
		}
	}
	return probe.ExpandEnv(path)
}
