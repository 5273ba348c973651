package scan

import (
	"context"
	"fmt"

	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/protect"
)

const sharedDllsPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\SharedDLLs`

// SharedDll finds SharedDLLs reference-count entries whose DLL is missing
// or whose count has dropped to zero.
type SharedDll struct {
	base
	deps Deps
}

func NewSharedDll(deps Deps) *SharedDll {
	return &SharedDll{base: newBase("shareddll", types.CategorySharedDll), deps: deps}
}

func (s *SharedDll) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue

	fullPath := types.JoinKeyPath(types.LocalMachine, sharedDllsPath)
	s.report(progress, fullPath, len(issues))

	k := openRead(s.deps.Registry, types.LocalMachine, sharedDllsPath)
	if k == nil {
		return issues, nil
	}
	values, err := k.Values()
	k.Close()
	if err != nil {
		return issues, nil
	}

	for _, v := range values {
		if cancelled(ctx) {
			return issues, cancelErr(ctx)
		}
		// The value name is the DLL path, the data its reference count.
		dllPath := v.Name
		s.report(progress, dllPath, len(issues))
		if protect.ContainsCriticalKeyword(dllPath) {
			continue
		}

		refCount, isDword := v.AsDWord()
		switch {
		case !s.deps.Files.FileExists(dllPath):
			issues = append(issues, s.issue(
				fullPath, dllPath,
				"Shared DLL not found",
				fmt.Sprintf("path: %s (references: %d)", dllPath, refCount),
				types.SeverityLow, true,
			))
		case isDword && refCount == 0:
			issues = append(issues, s.issue(
				fullPath, dllPath,
				"Shared DLL with zero references",
				fmt.Sprintf("path: %s (no longer used)", dllPath),
				types.SeverityLow, true,
			))
		}
	}
	return issues, nil
}
