package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
)

const emptyKeyMaxDepth = 4

// Vendor hives that are never eligible for empty-key removal.
var emptyKeySkips = []string{"Microsoft", "Windows", "Classes", "Policies", "Wow6432Node"}

// EmptyKeys finds leaf keys under the SOFTWARE hives that hold no values
// and no subkeys. The walk is depth-capped so a pathological tree cannot
// stall the scan.
type EmptyKeys struct {
	base
	deps Deps
}

func NewEmptyKeys(deps Deps) *EmptyKeys {
	return &EmptyKeys{base: newBase("emptykeys", types.CategoryEmptyKeys), deps: deps}
}

func (s *EmptyKeys) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue
	for _, root := range []types.RootKey{types.CurrentUser, types.LocalMachine} {
		if err := s.walk(ctx, root, "SOFTWARE", 0, &issues, progress); err != nil {
			return issues, err
		}
	}
	return issues, nil
}

func (s *EmptyKeys) walk(ctx context.Context, root types.RootKey, sub string, depth int, issues *[]types.Issue, progress types.ScanProgress) error {
	if depth > emptyKeyMaxDepth {
		return nil
	}
	k := openRead(s.deps.Registry, root, sub)
	if k == nil {
		return nil
	}
	names, err := k.Subkeys()
	k.Close()
	if err != nil {
		return nil
	}

	for _, name := range names {
		if cancelled(ctx) {
			return cancelErr(ctx)
		}
		if isVendorKey(name) {
			continue
		}
		childSub := sub + `\` + name
		fullPath := types.JoinKeyPath(root, childSub)
		s.report(progress, fullPath, len(*issues))

		child := openRead(s.deps.Registry, root, childSub)
		if child == nil {
			continue
		}
		valueCount, verr := child.ValueCount()
		subkeyCount, serr := child.SubkeyCount()
		child.Close()
		if verr != nil || serr != nil {
			continue
		}

		if valueCount == 0 && subkeyCount == 0 {
			*issues = append(*issues, s.issue(
				fullPath, "",
				fmt.Sprintf("Empty key: %s", name),
				"",
				types.SeverityLow, false,
			))
		} else if subkeyCount > 0 {
			if err := s.walk(ctx, root, childSub, depth+1, issues, progress); err != nil {
				return err
			}
		}
	}
	return nil
}

func isVendorKey(name string) bool {
	for _, skip := range emptyKeySkips {
		if strings.EqualFold(name, skip) {
			return true
		}
	}
	return false
}
