package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/probe"
)

const appPathsKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`

// AppPath finds App Paths registrations whose default value names a
// program that no longer exists.
type AppPath struct {
	base
	deps Deps
}

func NewAppPath(deps Deps) *AppPath {
	return &AppPath{base: newBase("apppath", types.CategoryAppPath), deps: deps}
}

func (s *AppPath) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	for _, root := range []types.RootKey{types.LocalMachine, types.CurrentUser} {
		parent := openRead(s.deps.Registry, root, appPathsKey)
		if parent == nil {
			continue
		}
		names, err := parent.Subkeys()
		if err != nil {
			parent.Close()
			continue
		}

		for _, appName := range names {
			if cancelled(ctx) {
				parent.Close()
				return issues, cancelErr(ctx)
			}
			fullPath := types.JoinKeyPath(root, appPathsKey) + `\` + appName
			s.report(progress, fullPath, len(issues))

			k, err := parent.OpenSubkey(appName, types.AccessRead)
			if err != nil {
				continue
			}
			target, ok := stringValue(k, "")
			k.Close()
			if !ok {
				continue
			}
			path := extractAppPath(target)
			if path != "" && !s.deps.Files.PathExists(path) {
				issues = append(issues, s.issue(
					fullPath, "",
					fmt.Sprintf("Application not found: %s", appName),
					fmt.Sprintf("path: %s", path),
					types.SeverityMedium, false,
				))
			}
		}
		parent.Close()
	}
	return issues, nil
}

// extractAppPath strips surrounding quotes and expands environment
// variables in an App Paths default value.
func extractAppPath(value string) string {
	path := value
	if path != "" && path[0] == '"' {
		if end := strings.IndexByte(path[1:], '"'); end != -1 {
			path = path[1 : end+1]
		}
	}
	return probe.ExpandEnv(path)
}
