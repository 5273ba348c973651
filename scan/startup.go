package scan

import (
	"context"
	"fmt"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/probe"
	"github.com/regsweep/regsweep/protect"
)

var startupPaths = []struct {
	root types.RootKey
	sub  string
}{
	{types.CurrentUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\Run`},
	{types.CurrentUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`},
	{types.LocalMachine, `SOFTWARE\Microsoft\Windows\CurrentVersion\Run`},
	{types.LocalMachine, `SOFTWARE\Microsoft\Windows\CurrentVersion\RunOnce`},
	{types.LocalMachine, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Run`},
	{types.LocalMachine, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\RunOnce`},
}

// Startup finds Run/RunOnce entries whose target executable is missing.
type Startup struct {
	base
	deps Deps
}

func NewStartup(deps Deps) *Startup {
	return &Startup{base: newBase("startup", types.CategoryStartupEntry), deps: deps}
}

func (s *Startup) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	for _, loc := range startupPaths {
		if cancelled(ctx) {
			return issues, cancelErr(ctx)
		}
		fullPath := types.JoinKeyPath(loc.root, loc.sub)
		s.report(progress, fullPath, len(issues))

		k := openRead(s.deps.Registry, loc.root, loc.sub)
		if k == nil {
			continue
		}
		values, err := k.Values()
		k.Close()
		if err != nil {
			continue
		}

		for _, v := range values {
			cmd, ok := v.AsString()
			if !ok || cmd == "" {
				continue
			}
			if protect.IsProtectedValue(v.Name) {
				continue
			}
			path, ok := probe.ExtractCommandPath(cmd, s.deps.Files)
			if !ok {
				continue
			}
			// Entries naming system binaries are left alone even when the
			// extraction got confused.
			if protect.ContainsCriticalKeyword(path) {
				continue
			}
			if !s.deps.Files.FileExists(path) {
				issues = append(issues, s.issue(
					fullPath, v.Name,
					fmt.Sprintf("Startup program not found: %s", v.Name),
					fmt.Sprintf("path: %s", path),
					types.SeverityMedium, true,
				))
			}
		}
	}
	return issues, nil
}
