package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/regsweep/regsweep/internal/regtext"
	"github.com/regsweep/regsweep/pkg/types"
)

const (
	regSuffix  = ".reg"
	metaSuffix = ".toml"

	// stampFormat prefixes artifact names with a sortable UTC timestamp,
	// so lexical filename order is creation order.
	stampFormat = "20060102T150405Z"

	// DefaultRetention is how many backups Prune keeps when the caller
	// passes no explicit limit.
	DefaultRetention = 10
)

// Record is the metadata sidecar written next to each .reg snapshot.
type Record struct {
	ID          string    `toml:"id"`
	CreatedAt   time.Time `toml:"created_at"`
	Description string    `toml:"description"`
	KeyCount    int       `toml:"key_count"`
	ValueCount  int       `toml:"value_count"`
	Keys        []string  `toml:"keys"`

	// Path of the .reg file. Artifacts are named
	// <timestamp>-<short id>.reg; the path is derived from the directory
	// layout rather than stored in the sidecar.
	Path string `toml:"-"`
}

// Manager creates, lists, restores and prunes backups in one directory.
type Manager struct {
	dir string
	reg types.Registry
	log zerolog.Logger
	now func() time.Time
}

// NewManager returns a manager rooted at dir. The directory is created on
// first use.
func NewManager(dir string, reg types.Registry, log zerolog.Logger) *Manager {
	return &Manager{
		dir: dir,
		reg: reg,
		log: log.With().Str("component", "backup").Logger(),
		now: time.Now,
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Create snapshots every issue's target into a single .reg backup and
// writes its metadata sidecar. Issues whose target could not be read are
// reported in the failed map by index and excluded from the snapshot; the
// caller must not mutate those targets. A backup file is written even when
// only a subset of issues could be captured.
func (m *Manager) Create(issues []types.Issue, description string) (*Record, map[int]error, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, nil, &types.Error{Kind: types.ErrKindBackup, Msg: "creating backup directory", Err: err}
	}

	var (
		entries []regtext.Entry
		seen    = map[string]bool{}
		failed  = map[int]error{}
		values  int
	)
	for i, issue := range issues {
		captured, err := m.snapshot(issue, seen)
		if err != nil {
			m.log.Warn().Str("key", issue.KeyPath).Err(err).Msg("could not snapshot target")
			failed[i] = err
			continue
		}
		for _, e := range captured {
			values += len(e.Values)
		}
		entries = append(entries, captured...)
	}
	if len(entries) == 0 && len(issues) > 0 {
		return nil, failed, &types.Error{Kind: types.ErrKindBackup, Msg: "no targets could be captured"}
	}

	rec := &Record{
		ID:          uuid.NewString(),
		CreatedAt:   m.now().UTC(),
		Description: description,
		KeyCount:    len(entries),
		ValueCount:  values,
	}
	for _, e := range entries {
		rec.Keys = append(rec.Keys, e.Path)
	}
	base := rec.CreatedAt.Format(stampFormat) + "-" + rec.ID[:8]
	rec.Path = filepath.Join(m.dir, base+regSuffix)

	data, err := regtext.Emit(entries)
	if err != nil {
		return nil, failed, &types.Error{Kind: types.ErrKindBackup, Msg: "encoding backup", Err: err}
	}
	if err := os.WriteFile(rec.Path, data, 0o644); err != nil {
		return nil, failed, &types.Error{Kind: types.ErrKindBackup, Msg: "writing backup file", Err: err}
	}
	if err := m.writeSidecar(rec); err != nil {
		_ = os.Remove(rec.Path)
		return nil, failed, err
	}

	m.log.Info().
		Str("id", rec.ID).
		Int("keys", rec.KeyCount).
		Int("values", rec.ValueCount).
		Msg("backup written")
	return rec, failed, nil
}

// snapshot captures one issue's target. A value issue captures just that
// value; a key issue captures the whole subtree.
func (m *Manager) snapshot(issue types.Issue, seen map[string]bool) ([]regtext.Entry, error) {
	root, sub, ok := types.SplitKeyPath(issue.KeyPath)
	if !ok {
		return nil, &types.Error{Kind: types.ErrKindBackup, Path: issue.KeyPath, Msg: "unrecognized root key"}
	}
	k, err := m.reg.Open(root, sub, types.AccessRead)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	if issue.ValueIssue {
		v, err := k.Value(issue.ValueName)
		if err != nil {
			return nil, err
		}
		return []regtext.Entry{{Path: issue.KeyPath, Values: []types.Value{v}}}, nil
	}
	return m.snapshotTree(k, issue.KeyPath, seen)
}

func (m *Manager) snapshotTree(k types.Key, path string, seen map[string]bool) ([]regtext.Entry, error) {
	if seen[strings.ToLower(path)] {
		return nil, nil
	}
	seen[strings.ToLower(path)] = true

	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	entries := []regtext.Entry{{Path: path, Values: vals}}

	subs, err := k.Subkeys()
	if err != nil {
		return nil, err
	}
	for _, name := range subs {
		child, err := k.OpenSubkey(name, types.AccessRead)
		if err != nil {
			// A subkey we cannot read is skipped rather than failing
			// the whole snapshot; its parent data is still captured.
			m.log.Warn().Str("key", path+`\`+name).Err(err).Msg("skipping unreadable subkey")
			continue
		}
		sub, err := m.snapshotTree(child, path+`\`+name, seen)
		child.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

func (m *Manager) writeSidecar(rec *Record) error {
	f, err := os.Create(strings.TrimSuffix(rec.Path, regSuffix) + metaSuffix)
	if err != nil {
		return &types.Error{Kind: types.ErrKindBackup, Msg: "writing backup metadata", Err: err}
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(rec); err != nil {
		return &types.Error{Kind: types.ErrKindBackup, Msg: "encoding backup metadata", Err: err}
	}
	return nil
}

// List returns all backups, newest first. Sidecars that fail to parse are
// skipped with a warning so one corrupt file cannot hide the rest.
func (m *Manager) List() ([]Record, error) {
	glob, err := filepath.Glob(filepath.Join(m.dir, "*"+metaSuffix))
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(glob))
	for _, path := range glob {
		var rec Record
		if _, err := toml.DecodeFile(path, &rec); err != nil {
			m.log.Warn().Str("file", path).Err(err).Msg("skipping unreadable backup metadata")
			continue
		}
		rec.Path = strings.TrimSuffix(path, metaSuffix) + regSuffix
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// Find returns the record whose ID matches, or an ID prefix when the
// prefix is unambiguous.
func (m *Manager) Find(id string) (*Record, error) {
	recs, err := m.List()
	if err != nil {
		return nil, err
	}
	var match *Record
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i], nil
		}
		if strings.HasPrefix(recs[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("backup id %q is ambiguous", id)
			}
			match = &recs[i]
		}
	}
	if match == nil {
		return nil, &types.Error{Kind: types.ErrKindNotFound, Msg: "no backup with id " + id}
	}
	return match, nil
}

// Restore re-applies a backup: every captured key is recreated and its
// values rewritten. Delete markers remove the named key subtree.
func (m *Manager) Restore(id string) error {
	rec, err := m.Find(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return &types.Error{Kind: types.ErrKindRestore, Msg: "reading backup file", Err: err}
	}
	entries, err := regtext.Parse(data)
	if err != nil {
		return &types.Error{Kind: types.ErrKindRestore, Msg: "parsing backup file", Err: err}
	}
	if err := regtext.RequireEntries(entries); err != nil {
		return &types.Error{Kind: types.ErrKindRestore, Msg: "empty backup file", Err: err}
	}

	for _, e := range entries {
		if err := m.applyEntry(e); err != nil {
			return err
		}
	}
	m.log.Info().Str("id", rec.ID).Int("keys", len(entries)).Msg("backup restored")
	return nil
}

func (m *Manager) applyEntry(e regtext.Entry) error {
	root, sub, ok := types.SplitKeyPath(e.Path)
	if !ok {
		return &types.Error{Kind: types.ErrKindRestore, Path: e.Path, Msg: "unrecognized root key"}
	}
	if e.Delete {
		parent, leaf := splitParent(sub)
		k, err := m.reg.Open(root, parent, types.AccessWrite|types.AccessDelete)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		defer k.Close()
		if err := k.DeleteTree(leaf); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	}

	k, err := m.reg.Create(root, sub, types.AccessWrite|types.AccessSetValue)
	if err != nil {
		return err
	}
	defer k.Close()
	for _, v := range e.Values {
		if err := k.SetValue(v); err != nil {
			return &types.Error{Kind: types.ErrKindRestore, Path: e.Path, Msg: "rewriting value " + v.Name, Err: err}
		}
	}
	return nil
}

// Prune deletes the oldest backups beyond keep, returning how many were
// removed. Recency comes from the artifact names, not the sidecars, so a
// corrupt sidecar cannot shield its .reg from retention. keep <= 0 means
// DefaultRetention.
func (m *Manager) Prune(keep int) (int, error) {
	if keep <= 0 {
		keep = DefaultRetention
	}
	paths, err := filepath.Glob(filepath.Join(m.dir, "*"+regSuffix))
	if err != nil {
		return 0, err
	}
	if len(paths) <= keep {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	removed := 0
	for _, path := range paths[keep:] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		if err := os.Remove(strings.TrimSuffix(path, regSuffix) + metaSuffix); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		m.log.Debug().Str("file", filepath.Base(path)).Msg("pruned backup")
		removed++
	}
	return removed, nil
}

func splitParent(sub string) (parent, leaf string) {
	i := strings.LastIndex(sub, `\`)
	if i == -1 {
		return "", sub
	}
	return sub[:i], sub[i+1:]
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
