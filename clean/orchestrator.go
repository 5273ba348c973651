package clean

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regsweep/regsweep/backup"
	"github.com/regsweep/regsweep/escalate"
	"github.com/regsweep/regsweep/pkg/types"
	"github.com/regsweep/regsweep/protect"
)

// State is where a batch currently stands.
type State int

const (
	StateIdle State = iota
	StateBackingUp
	StateMutating
	StateDone
	StatePartiallyFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackingUp:
		return "backing-up"
	case StateMutating:
		return "mutating"
	case StateDone:
		return "done"
	case StatePartiallyFailed:
		return "partially-failed"
	default:
		return "unknown"
	}
}

// CleanProgress is invoked before each issue is processed.
type CleanProgress func(current, total int, issue types.Issue)

// Orchestrator runs cleaning batches one issue at a time.
type Orchestrator struct {
	reg       types.Registry
	backups   *backup.Manager
	chain     *escalate.Chain
	log       zerolog.Logger
	state     State
	retention int
}

func New(reg types.Registry, backups *backup.Manager, chain *escalate.Chain, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		reg:     reg,
		backups: backups,
		chain:   chain,
		log:     log.With().Str("component", "clean").Logger(),
		state:   StateIdle,
	}
}

// State reports the current batch phase.
func (o *Orchestrator) State() State { return o.state }

// SetRetention overrides how many backups survive the post-clean prune.
// Zero or negative keeps the manager's default.
func (o *Orchestrator) SetRetention(n int) { o.retention = n }

// Clean processes the issues in order. With backups enabled a successful
// snapshot is a hard precondition per issue: items whose snapshot failed
// are never touched. The returned error is only ever a cancellation; all
// per-issue failures live in the stats.
func (o *Orchestrator) Clean(ctx context.Context, issues []types.Issue, backupEnabled bool, progress CleanProgress) (types.CleanStats, error) {
	stats := types.CleanStats{Selected: len(issues)}
	if len(issues) == 0 {
		o.state = StateDone
		return stats, nil
	}
	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	backupFailed := map[int]error{}
	if backupEnabled {
		o.state = StateBackingUp
		rec, failed, err := o.backups.Create(issues, "pre-clean "+start.UTC().Format(time.RFC3339))
		backupFailed = failed
		switch {
		case err != nil:
			// Nothing was captured: every issue fails its precondition.
			o.log.Error().Err(err).Msg("backup failed, nothing will be cleaned")
			for i := range issues {
				if _, ok := backupFailed[i]; !ok {
					backupFailed[i] = err
				}
			}
		case rec != nil:
			stats.BackupPath = rec.Path
			if _, perr := o.backups.Prune(o.retention); perr != nil {
				o.log.Warn().Err(perr).Msg("could not prune old backups")
			}
		}
	}

	o.state = StateMutating
	cancelled := false
	for i, issue := range issues {
		if progress != nil {
			progress(i+1, len(issues), issue)
		}
		if cancelled || ctx.Err() != nil {
			cancelled = true
			stats.Skipped++
			stats.Results = append(stats.Results, types.IssueResult{
				Issue: issue, Outcome: types.OutcomeSkipped, Reason: "cancelled",
			})
			continue
		}
		res := o.cleanOne(issue, backupEnabled, backupFailed[i], &stats)
		stats.Results = append(stats.Results, res)
	}

	if stats.Cleaned == stats.Selected {
		o.state = StateDone
	} else {
		o.state = StatePartiallyFailed
	}
	o.log.Info().
		Int("selected", stats.Selected).
		Int("cleaned", stats.Cleaned).
		Int("failed", stats.Failed).
		Int("protected", stats.Protected).
		Msg("batch finished")

	if cancelled {
		return stats, &types.Error{Kind: types.ErrKindCancelled, Msg: "clean cancelled", Err: ctx.Err()}
	}
	return stats, nil
}

func (o *Orchestrator) cleanOne(issue types.Issue, backupEnabled bool, backupErr error, stats *types.CleanStats) types.IssueResult {
	// The protected policy is re-checked here no matter what the scanner
	// said: scanners advise, this gate decides.
	if refused, reason := o.refused(issue); refused {
		stats.Protected++
		return types.IssueResult{Issue: issue, Outcome: types.OutcomeProtected, Reason: reason}
	}
	if backupEnabled && backupErr != nil {
		stats.BackupFailures++
		return types.IssueResult{
			Issue: issue, Outcome: types.OutcomeBackupFailed,
			Reason: "target was not captured by the backup", Err: backupErr,
		}
	}

	err := o.deleteTarget(issue, stats)
	if err != nil {
		stats.Failed++
		return types.IssueResult{Issue: issue, Outcome: types.OutcomeFailed, Reason: err.Error(), Err: err}
	}
	stats.Cleaned++
	stats.FreedEstimate += issue.EstimatedSize
	return types.IssueResult{Issue: issue, Outcome: types.OutcomeCleaned}
}

func (o *Orchestrator) refused(issue types.Issue) (bool, string) {
	if issue.Severity == types.SeverityCritical {
		return true, "critical severity is never cleaned automatically"
	}
	if protect.IsProtectedKey(issue.KeyPath) {
		return true, "key is protected"
	}
	if issue.ValueIssue && protect.IsProtectedValue(issue.ValueName) {
		return true, "value name is protected"
	}
	return false, ""
}

func (o *Orchestrator) deleteTarget(issue types.Issue, stats *types.CleanStats) error {
	root, sub, ok := types.SplitKeyPath(issue.KeyPath)
	if !ok {
		return fmt.Errorf("unrecognized key path %q", issue.KeyPath)
	}

	var err error
	if issue.ValueIssue && issue.ValueName != "" {
		err = o.deleteValue(root, sub, issue.ValueName)
	} else {
		err = o.deleteKey(root, sub)
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrAccessDenied) {
		return err
	}

	// The OS said no: walk the escalation chain.
	o.log.Warn().Str("key", issue.KeyPath).Msg("access denied, escalating")
	stats.ForcedDeletes++
	if issue.ValueIssue && issue.ValueName != "" {
		return o.chain.ForceDeleteValue(root, sub, issue.ValueName)
	}
	res, ferr := o.chain.ForceDeleteKey(root, sub)
	if ferr != nil {
		return ferr
	}
	if res == escalate.ResultScheduled {
		stats.Rebooters++
	}
	return nil
}

func (o *Orchestrator) deleteValue(root types.RootKey, sub, name string) error {
	k, err := o.reg.Open(root, sub, types.AccessSetValue)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.DeleteValue(name)
}

// deleteKey removes the key via its parent: a plain subkey delete first,
// then the recursive tree delete when children are in the way.
func (o *Orchestrator) deleteKey(root types.RootKey, sub string) error {
	parent, leaf := splitParent(sub)
	pk, err := o.reg.Open(root, parent, types.AccessAll)
	if err != nil {
		return err
	}
	defer pk.Close()
	if err := pk.DeleteSubkey(leaf); err == nil {
		return nil
	}
	return pk.DeleteTree(leaf)
}

func splitParent(sub string) (parent, leaf string) {
	i := strings.LastIndex(sub, `\`)
	if i == -1 {
		return "", sub
	}
	return sub[:i], sub[i+1:]
}
