package scan

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/regsweep/regsweep/pkg/types"
)

// Deps carries the collaborators every scanner needs.
type Deps struct {
	Registry types.Registry
	Files    types.FileProber
	Services types.ServiceProber
	Log      zerolog.Logger
}

// base implements the non-Scan half of the Scanner contract.
type base struct {
	name     string
	category types.Category
	enabled  bool
}

func newBase(name string, category types.Category) base {
	return base{name: name, category: category, enabled: true}
}

func (b *base) Name() string             { return b.name }
func (b *base) Category() types.Category { return b.category }
func (b *base) Enabled() bool            { return b.enabled }
func (b *base) SetEnabled(v bool)        { b.enabled = v }

func (b *base) report(progress types.ScanProgress, keyPath string, found int) {
	if progress != nil {
		progress(b.name, keyPath, found)
	}
}

// issue fills the fields shared by every finding of this scanner.
func (b *base) issue(keyPath, valueName, description, details string, sev types.Severity, valueIssue bool) types.Issue {
	return types.Issue{
		Category:    b.category,
		Severity:    sev,
		Description: description,
		Details:     details,
		KeyPath:     keyPath,
		ValueName:   valueName,
		ValueIssue:  valueIssue,
	}
}

// cancelled polls ctx without blocking. Scanners check it between keys.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func cancelErr(ctx context.Context) error {
	return &types.Error{Kind: types.ErrKindCancelled, Msg: "scan cancelled", Err: ctx.Err()}
}

// openRead opens a key read-only, returning nil when it does not exist or
// cannot be read. Scanners treat unreadable keys as out of scope.
func openRead(reg types.Registry, root types.RootKey, sub string) types.Key {
	k, err := reg.Open(root, sub, types.AccessRead)
	if err != nil {
		return nil
	}
	return k
}

// stringValue fetches a named value when it is string-typed.
func stringValue(k types.Key, name string) (string, bool) {
	v, err := k.Value(name)
	if err != nil {
		return "", false
	}
	return v.AsString()
}

// dwordValue fetches a named value when it is dword-typed.
func dwordValue(k types.Key, name string) (uint32, bool) {
	v, err := k.Value(name)
	if err != nil {
		return 0, false
	}
	return v.AsDWord()
}
