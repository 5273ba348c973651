// Package testutil provides an in-memory registry implementation and probe
// fakes for exercising scanners and the cleaning pipeline without a live
// Windows registry.
package testutil

import (
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/regsweep/regsweep/pkg/types"
)

// FakeRegistry is an in-memory tree implementing types.Registry. Key and
// value name lookups are case-insensitive, matching the real registry.
// It is safe for concurrent use.
type FakeRegistry struct {
	mu    sync.Mutex
	roots map[types.RootKey]*node

	// DenyWrite lists full key paths (root-prefixed) for which any write
	// access request fails with an access denied error. Used to drive the
	// permission escalation path in tests.
	DenyWrite map[string]bool

	// DenyRead lists full key paths for which any open fails with an
	// access denied error, even read-only ones. Used to drive backup
	// failures against keys that exist.
	DenyRead map[string]bool

	mutations []string
}

type node struct {
	name    string
	subkeys map[string]*node // lower-cased name -> child
	order   []string         // original-cased insertion order
	values  map[string]types.Value
	vorder  []string
}

func newNode(name string) *node {
	return &node{
		name:    name,
		subkeys: map[string]*node{},
		values:  map[string]types.Value{},
	}
}

// NewFakeRegistry returns an empty registry with all five roots present.
func NewFakeRegistry() *FakeRegistry {
	r := &FakeRegistry{
		roots:     map[types.RootKey]*node{},
		DenyWrite: map[string]bool{},
		DenyRead:  map[string]bool{},
	}
	for _, root := range []types.RootKey{
		types.ClassesRoot, types.CurrentUser, types.LocalMachine,
		types.Users, types.CurrentConfig,
	} {
		r.roots[root] = newNode(root.String())
	}
	return r
}

func (r *FakeRegistry) lookup(root types.RootKey, path string) (*node, bool) {
	n, ok := r.roots[root]
	if !ok {
		return nil, false
	}
	if path == "" {
		return n, true
	}
	for _, part := range strings.Split(path, `\`) {
		child, ok := n.subkeys[strings.ToLower(part)]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// Open implements types.Registry.
func (r *FakeRegistry) Open(root types.RootKey, path string, access types.Access) (types.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	full := types.JoinKeyPath(root, path)
	if r.DenyRead[full] {
		return nil, types.E(types.ErrKindAccessDenied, 5, full, "access is denied")
	}
	if access&(types.AccessWrite|types.AccessSetValue|types.AccessDelete) != 0 && r.DenyWrite[full] {
		return nil, types.E(types.ErrKindAccessDenied, 5, full, "access is denied")
	}
	n, ok := r.lookup(root, path)
	if !ok {
		return nil, types.E(types.ErrKindNotFound, 2, full, "key not found")
	}
	return &fakeKey{reg: r, node: n, root: root, path: path}, nil
}

// Create implements types.Registry, making intermediate keys as needed.
func (r *FakeRegistry) Create(root types.RootKey, path string, access types.Access) (types.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.roots[root]
	if !ok {
		return nil, types.E(types.ErrKindNotFound, 2, root.String(), "unknown root")
	}
	if path != "" {
		for _, part := range strings.Split(path, `\`) {
			lk := strings.ToLower(part)
			child, ok := n.subkeys[lk]
			if !ok {
				child = newNode(part)
				n.subkeys[lk] = child
				n.order = append(n.order, part)
			}
			n = child
		}
	}
	return &fakeKey{reg: r, node: n, root: root, path: path}, nil
}

// MustCreate builds the key path, failing the test on error.
func (r *FakeRegistry) MustCreate(t *testing.T, root types.RootKey, path string) types.Key {
	t.Helper()
	k, err := r.Create(root, path, types.AccessAll)
	if err != nil {
		t.Fatalf("create %s: %v", types.JoinKeyPath(root, path), err)
	}
	return k
}

// Seed creates the key path and populates it with the given values.
func (r *FakeRegistry) Seed(t *testing.T, root types.RootKey, path string, values ...types.Value) {
	t.Helper()
	k := r.MustCreate(t, root, path)
	defer k.Close()
	for _, v := range values {
		if err := k.SetValue(v); err != nil {
			t.Fatalf("seed %s[%s]: %v", types.JoinKeyPath(root, path), v.Name, err)
		}
	}
}

// HasKey reports whether the full path exists.
func (r *FakeRegistry) HasKey(root types.RootKey, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.lookup(root, path)
	return ok
}

// Mutations returns the ordered log of destructive operations, each entry
// formatted as "op path" or "op path[value]".
func (r *FakeRegistry) Mutations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.mutations))
	copy(out, r.mutations)
	return out
}

func (r *FakeRegistry) logMutation(s string) {
	r.mutations = append(r.mutations, s)
}

type fakeKey struct {
	reg    *FakeRegistry
	node   *node
	root   types.RootKey
	path   string
	closed bool
}

func (k *fakeKey) Close() error {
	k.closed = true
	return nil
}

func (k *fakeKey) Path() string {
	return types.JoinKeyPath(k.root, k.path)
}

func (k *fakeKey) guard() error {
	if k.closed {
		return types.E(types.ErrKindState, 0, k.Path(), "key handle is closed")
	}
	return nil
}

func (k *fakeKey) Subkeys() ([]string, error) {
	if err := k.guard(); err != nil {
		return nil, err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	out := make([]string, len(k.node.order))
	copy(out, k.node.order)
	return out, nil
}

func (k *fakeKey) Values() ([]types.Value, error) {
	if err := k.guard(); err != nil {
		return nil, err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	out := make([]types.Value, 0, len(k.node.vorder))
	for _, name := range k.node.vorder {
		out = append(out, k.node.values[strings.ToLower(name)])
	}
	return out, nil
}

func (k *fakeKey) Value(name string) (types.Value, error) {
	if err := k.guard(); err != nil {
		return types.Value{}, err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	v, ok := k.node.values[strings.ToLower(name)]
	if !ok {
		return types.Value{}, types.E(types.ErrKindNotFound, 2, k.Path(), "value "+name+" not found")
	}
	return v, nil
}

func (k *fakeKey) SetValue(v types.Value) error {
	if err := k.guard(); err != nil {
		return err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	lk := strings.ToLower(v.Name)
	if _, ok := k.node.values[lk]; !ok {
		k.node.vorder = append(k.node.vorder, v.Name)
	}
	k.node.values[lk] = v
	return nil
}

func (k *fakeKey) DeleteValue(name string) error {
	if err := k.guard(); err != nil {
		return err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	if k.reg.DenyWrite[k.Path()] {
		return types.E(types.ErrKindAccessDenied, 5, k.Path(), "access is denied")
	}
	lk := strings.ToLower(name)
	if _, ok := k.node.values[lk]; !ok {
		return types.E(types.ErrKindNotFound, 2, k.Path(), "value "+name+" not found")
	}
	delete(k.node.values, lk)
	for i, n := range k.node.vorder {
		if strings.EqualFold(n, name) {
			k.node.vorder = append(k.node.vorder[:i], k.node.vorder[i+1:]...)
			break
		}
	}
	k.reg.logMutation("delval " + k.Path() + "[" + name + "]")
	return nil
}

func (k *fakeKey) deleteChild(name string, recursive bool) error {
	if err := k.guard(); err != nil {
		return err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	childPath := k.Path() + `\` + name
	if k.reg.DenyWrite[childPath] {
		return types.E(types.ErrKindAccessDenied, 5, childPath, "access is denied")
	}
	lk := strings.ToLower(name)
	child, ok := k.node.subkeys[lk]
	if !ok {
		return types.E(types.ErrKindNotFound, 2, childPath, "key not found")
	}
	if !recursive && len(child.subkeys) > 0 {
		return types.E(types.ErrKindAccessDenied, 5, childPath, "key has children")
	}
	delete(k.node.subkeys, lk)
	for i, n := range k.node.order {
		if strings.EqualFold(n, name) {
			k.node.order = append(k.node.order[:i], k.node.order[i+1:]...)
			break
		}
	}
	if recursive {
		k.reg.logMutation("deltree " + childPath)
	} else {
		k.reg.logMutation("delkey " + childPath)
	}
	return nil
}

func (k *fakeKey) DeleteSubkey(name string) error {
	return k.deleteChild(name, false)
}

func (k *fakeKey) DeleteTree(name string) error {
	return k.deleteChild(name, true)
}

func (k *fakeKey) SubkeyExists(name string) bool {
	if k.closed {
		return false
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	_, ok := k.node.subkeys[strings.ToLower(name)]
	return ok
}

func (k *fakeKey) ValueExists(name string) bool {
	if k.closed {
		return false
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	_, ok := k.node.values[strings.ToLower(name)]
	return ok
}

func (k *fakeKey) SubkeyCount() (int, error) {
	if err := k.guard(); err != nil {
		return 0, err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	return len(k.node.subkeys), nil
}

func (k *fakeKey) ValueCount() (int, error) {
	if err := k.guard(); err != nil {
		return 0, err
	}
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	return len(k.node.values), nil
}

func (k *fakeKey) OpenSubkey(name string, access types.Access) (types.Key, error) {
	if err := k.guard(); err != nil {
		return nil, err
	}
	sub := name
	if k.path != "" {
		sub = k.path + `\` + name
	}
	return k.reg.Open(k.root, sub, access)
}

// FakeFileProber answers existence queries from a fixed set of paths.
// Lookups are case-insensitive like NTFS.
type FakeFileProber struct {
	Files map[string]bool
	Dirs  map[string]bool
}

// NewFakeFileProber marks each given path as an existing file.
func NewFakeFileProber(paths ...string) *FakeFileProber {
	p := &FakeFileProber{Files: map[string]bool{}, Dirs: map[string]bool{}}
	for _, path := range paths {
		p.Files[strings.ToLower(path)] = true
	}
	return p
}

// AddDir marks a path as an existing directory.
func (p *FakeFileProber) AddDir(path string) {
	p.Dirs[strings.ToLower(path)] = true
}

func (p *FakeFileProber) FileExists(path string) bool {
	return p.Files[strings.ToLower(path)]
}

func (p *FakeFileProber) DirExists(path string) bool {
	return p.Dirs[strings.ToLower(path)]
}

func (p *FakeFileProber) PathExists(path string) bool {
	return p.FileExists(path) || p.DirExists(path)
}

// FakeServiceProber reports the named services as running.
type FakeServiceProber struct {
	Running map[string]bool
}

func NewFakeServiceProber(names ...string) *FakeServiceProber {
	p := &FakeServiceProber{Running: map[string]bool{}}
	for _, n := range names {
		p.Running[strings.ToLower(n)] = true
	}
	return p
}

func (p *FakeServiceProber) ServiceRunning(name string) bool {
	return p.Running[strings.ToLower(name)]
}

// SortedIssuePaths returns the key paths of the issues in sorted order, a
// convenience for order-insensitive assertions.
func SortedIssuePaths(issues []types.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.KeyPath)
	}
	sort.Strings(out)
	return out
}
