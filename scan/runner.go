package scan

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/regsweep/regsweep/pkg/types"
)

// Runner executes a fixed set of scanners. Findings are merged in
// registration order regardless of which scanner finishes first, so scan
// output is deterministic for a given registry state.
type Runner struct {
	deps     Deps
	scanners []types.Scanner
	skip     []string
}

// NewRunner builds a runner over an explicit scanner set.
func NewRunner(deps Deps, scanners ...types.Scanner) *Runner {
	return &Runner{deps: deps, scanners: scanners}
}

// NewDefaultRunner builds a runner with the full scanner catalogue.
func NewDefaultRunner(deps Deps) *Runner {
	return NewRunner(deps,
		NewUninstall(deps),
		NewFileExtension(deps),
		NewMRU(deps),
		NewStartup(deps),
		NewSharedDll(deps),
		NewServices(deps),
		NewEmptyKeys(deps),
		NewAppPath(deps),
	)
}

// Scanners exposes the registered scanners for selective enabling.
func (r *Runner) Scanners() []types.Scanner { return r.scanners }

// EnableOnly flips every scanner off except those matching the given
// categories. An empty category list enables everything.
func (r *Runner) EnableOnly(categories ...types.Category) {
	if len(categories) == 0 {
		for _, s := range r.scanners {
			s.SetEnabled(true)
		}
		return
	}
	want := map[types.Category]bool{}
	for _, c := range categories {
		want[c] = true
	}
	for _, s := range r.scanners {
		s.SetEnabled(want[s.Category()])
	}
}

// SkipPrefixes drops any finding whose key path starts with one of the
// given prefixes. Matching is case-insensitive, like the registry itself.
func (r *Runner) SkipPrefixes(prefixes ...string) {
	r.skip = prefixes
}

func (r *Runner) skipped(keyPath string) bool {
	for _, p := range r.skip {
		if len(keyPath) >= len(p) && strings.EqualFold(keyPath[:len(p)], p) {
			return true
		}
	}
	return false
}

// Scan runs every enabled scanner concurrently and returns the merged
// findings. The first scanner error cancels the rest; partial results from
// scanners that completed are still returned.
func (r *Runner) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]types.Issue, len(r.scanners))

	for i, s := range r.scanners {
		if !s.Enabled() {
			continue
		}
		i, s := i, s
		g.Go(func() error {
			log := r.deps.Log.With().Str("scanner", s.Name()).Logger()
			issues, err := s.Scan(gctx, progress)
			results[i] = issues
			if err != nil {
				log.Warn().Err(err).Msg("scanner aborted")
				return err
			}
			log.Debug().Int("issues", len(issues)).Msg("scanner finished")
			return nil
		})
	}

	err := g.Wait()
	var merged []types.Issue
	for _, rs := range results {
		for _, issue := range rs {
			if r.skipped(issue.KeyPath) {
				continue
			}
			merged = append(merged, issue)
		}
	}
	return merged, err
}
