package types

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindNotFound     ErrKind = iota // missing key/value/path
	ErrKindAccessDenied                // the OS refused the operation
	ErrKindMalformed                   // malformed value data (tolerated by the codec)
	ErrKindBackup                      // backup artifact could not be created
	ErrKindRestore                     // backup artifact could not be re-applied
	ErrKindCancelled                   // caller cancelled between items
	ErrKindProtected                   // target refused by the protected-key policy
	ErrKindState                       // invalid operation for current state (e.g., closed handle)
)

// Error is a typed error carrying the numeric OS status and the offending
// key path alongside the message. Registry operations never panic and never
// surface untyped errors.
type Error struct {
	Kind   ErrKind
	Status int64  // OS status code (LSTATUS), 0 when not OS-originated
	Path   string // fully-qualified key path the operation targeted
	Msg    string
	Err    error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " [status %d]", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e != nil && e.Kind == t.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrNotFound indicates a missing key or value.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "key or value not found"}
	// ErrAccessDenied indicates the OS refused the operation.
	ErrAccessDenied = &Error{Kind: ErrKindAccessDenied, Msg: "access denied"}
	// ErrBackupFailed indicates the pre-mutation backup could not be written.
	ErrBackupFailed = &Error{Kind: ErrKindBackup, Msg: "backup failed"}
	// ErrRestoreFailed indicates a backup artifact could not be re-applied.
	ErrRestoreFailed = &Error{Kind: ErrKindRestore, Msg: "restore failed"}
	// ErrCancelled indicates the batch was cancelled between items.
	ErrCancelled = &Error{Kind: ErrKindCancelled, Msg: "cancelled"}
	// ErrProtected indicates the protected-key policy refused the target.
	ErrProtected = &Error{Kind: ErrKindProtected, Msg: "protected key or value"}
	// ErrClosed indicates an operation on a handle that owns nothing.
	ErrClosed = &Error{Kind: ErrKindState, Msg: "key handle is closed"}
)

// E constructs a typed error in one call.
func E(kind ErrKind, status int64, path, msg string) *Error {
	return &Error{Kind: kind, Status: status, Path: path, Msg: msg}
}

// -----------------------------------------------------------------------------
// Registry roots and access rights
// -----------------------------------------------------------------------------

// RootKey identifies a predefined registry hive root.
type RootKey int

const (
	ClassesRoot RootKey = iota
	CurrentUser
	LocalMachine
	Users
	CurrentConfig
)

// String returns the canonical HKEY_* name.
func (r RootKey) String() string {
	switch r {
	case ClassesRoot:
		return "HKEY_CLASSES_ROOT"
	case CurrentUser:
		return "HKEY_CURRENT_USER"
	case LocalMachine:
		return "HKEY_LOCAL_MACHINE"
	case Users:
		return "HKEY_USERS"
	case CurrentConfig:
		return "HKEY_CURRENT_CONFIG"
	default:
		return "UNKNOWN"
	}
}

// Abbrev returns the short HKLM-style form used by reg.exe.
func (r RootKey) Abbrev() string {
	switch r {
	case ClassesRoot:
		return "HKCR"
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	case Users:
		return "HKU"
	case CurrentConfig:
		return "HKCC"
	default:
		return "HKLM"
	}
}

// ParseRootKey recognizes both long and abbreviated root names,
// case-insensitively. ok is false for anything else.
func ParseRootKey(s string) (RootKey, bool) {
	switch strings.ToUpper(s) {
	case "HKEY_CLASSES_ROOT", "HKCR":
		return ClassesRoot, true
	case "HKEY_CURRENT_USER", "HKCU":
		return CurrentUser, true
	case "HKEY_LOCAL_MACHINE", "HKLM":
		return LocalMachine, true
	case "HKEY_USERS", "HKU":
		return Users, true
	case "HKEY_CURRENT_CONFIG", "HKCC":
		return CurrentConfig, true
	}
	return 0, false
}

// SplitKeyPath splits a fully-qualified path ("HKEY_LOCAL_MACHINE\SOFTWARE\X")
// into its root and subkey path. ok is false when the root is unrecognized.
func SplitKeyPath(full string) (root RootKey, sub string, ok bool) {
	head, tail, found := strings.Cut(full, `\`)
	root, ok = ParseRootKey(head)
	if !ok {
		return 0, "", false
	}
	if found {
		sub = tail
	}
	return root, sub, true
}

// JoinKeyPath builds the fully-qualified form back from root and subkey.
func JoinKeyPath(root RootKey, sub string) string {
	if sub == "" {
		return root.String()
	}
	return root.String() + `\` + sub
}

// Access is a registry access mask (REGSAM). The numeric values align with
// the Windows definitions so the winreg package passes them straight through.
type Access uint32

const (
	AccessRead     Access = 0x20019 // KEY_READ
	AccessWrite    Access = 0x20006 // KEY_WRITE
	AccessSetValue Access = 0x0002  // KEY_SET_VALUE
	AccessDelete   Access = 0x10000 // DELETE
	AccessAll      Access = 0xF003F // KEY_ALL_ACCESS
)

// -----------------------------------------------------------------------------
// Registry value model
// -----------------------------------------------------------------------------

// RegType enumerates Windows registry value types.
// (The numbers align with Windows definitions.)
type RegType uint32

const (
	REG_NONE                       RegType = 0
	REG_SZ                         RegType = 1
	REG_EXPAND_SZ                  RegType = 2
	REG_BINARY                     RegType = 3
	REG_DWORD                      RegType = 4
	REG_DWORD_BE                   RegType = 5
	REG_LINK                       RegType = 6
	REG_MULTI_SZ                   RegType = 7
	REG_RESOURCE_LIST              RegType = 8
	REG_FULL_RESOURCE_DESCRIPTOR   RegType = 9
	REG_RESOURCE_REQUIREMENTS_LIST RegType = 10
	REG_QWORD                      RegType = 11
)

// String implements the Stringer interface for RegType.
func (t RegType) String() string {
	switch t {
	case REG_NONE:
		return "REG_NONE"
	case REG_SZ:
		return "REG_SZ"
	case REG_EXPAND_SZ:
		return "REG_EXPAND_SZ"
	case REG_BINARY:
		return "REG_BINARY"
	case REG_DWORD:
		return "REG_DWORD"
	case REG_DWORD_BE:
		return "REG_DWORD_BIG_ENDIAN"
	case REG_LINK:
		return "REG_LINK"
	case REG_MULTI_SZ:
		return "REG_MULTI_SZ"
	case REG_RESOURCE_LIST:
		return "REG_RESOURCE_LIST"
	case REG_FULL_RESOURCE_DESCRIPTOR:
		return "REG_FULL_RESOURCE_DESCRIPTOR"
	case REG_RESOURCE_REQUIREMENTS_LIST:
		return "REG_RESOURCE_REQUIREMENTS_LIST"
	case REG_QWORD:
		return "REG_QWORD"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", uint32(t))
	}
}

// ValueData is the payload of a registry value. Exactly one concrete variant
// exists per decoded value, and the value codec guarantees the variant always
// matches the declared RegType.
type ValueData interface{ isValueData() }

type (
	// NoneData is the payload of REG_NONE values.
	NoneData struct{}
	// StringData holds REG_SZ, REG_EXPAND_SZ, and REG_LINK payloads.
	StringData string
	// MultiStringData holds REG_MULTI_SZ payloads; order is significant and
	// duplicates are allowed.
	MultiStringData []string
	// BinaryData holds REG_BINARY and the resource-descriptor types verbatim.
	BinaryData []byte
	// DWordData holds REG_DWORD and REG_DWORD_BIG_ENDIAN payloads in host order.
	DWordData uint32
	// QWordData holds REG_QWORD payloads.
	QWordData uint64
)

func (NoneData) isValueData()        {}
func (StringData) isValueData()      {}
func (MultiStringData) isValueData() {}
func (BinaryData) isValueData()      {}
func (DWordData) isValueData()       {}
func (QWordData) isValueData()       {}

// Value is one decoded registry value: name, declared type, and a payload
// variant matching that type.
type Value struct {
	Name string
	Type RegType
	Data ValueData
}

// AsString returns the string payload, ok=false for other variants.
func (v Value) AsString() (string, bool) {
	s, ok := v.Data.(StringData)
	return string(s), ok
}

// AsStrings returns the multi-string payload, ok=false for other variants.
func (v Value) AsStrings() ([]string, bool) {
	s, ok := v.Data.(MultiStringData)
	return []string(s), ok
}

// AsBinary returns the raw payload, ok=false for other variants.
func (v Value) AsBinary() ([]byte, bool) {
	b, ok := v.Data.(BinaryData)
	return []byte(b), ok
}

// AsDWord returns the 32-bit payload, ok=false for other variants.
func (v Value) AsDWord() (uint32, bool) {
	d, ok := v.Data.(DWordData)
	return uint32(d), ok
}

// AsQWord returns the 64-bit payload, ok=false for other variants.
func (v Value) AsQWord() (uint64, bool) {
	q, ok := v.Data.(QWordData)
	return uint64(q), ok
}

// IsString reports whether the value carries a string payload
// (REG_SZ or REG_EXPAND_SZ).
func (v Value) IsString() bool {
	return v.Type == REG_SZ || v.Type == REG_EXPAND_SZ
}

// Display renders the payload for human consumption.
func (v Value) Display() string {
	switch d := v.Data.(type) {
	case nil, NoneData:
		return "(empty)"
	case StringData:
		return string(d)
	case MultiStringData:
		return strings.Join(d, "; ")
	case BinaryData:
		return fmt.Sprintf("(binary data, %d bytes)", len(d))
	case DWordData:
		return fmt.Sprintf("%d", uint32(d))
	case QWordData:
		return fmt.Sprintf("%d", uint64(d))
	default:
		return "(unknown)"
	}
}

// -----------------------------------------------------------------------------
// Key handle and registry access
// -----------------------------------------------------------------------------

// Key is a scoped handle over one open registry key. Implementations own
// exactly one OS handle; Close is idempotent and a closed key returns
// ErrClosed from every fallible operation.
type Key interface {
	// Close releases the OS handle. Safe to call more than once.
	Close() error

	// Path returns the fully-qualified key path for diagnostics.
	Path() string

	// Subkeys lists the names of direct child keys.
	Subkeys() ([]string, error)

	// Values enumerates and decodes every value in the key.
	Values() ([]Value, error)

	// Value reads and decodes one named value ("" for the default value).
	Value(name string) (Value, error)

	// SetValue encodes and writes a value.
	SetValue(v Value) error

	// DeleteValue removes one named value.
	DeleteValue(name string) error

	// DeleteSubkey removes an empty child key; fails if it has children.
	DeleteSubkey(name string) error

	// DeleteTree removes a child key and its entire subtree.
	DeleteTree(name string) error

	// SubkeyExists reports whether a direct child key exists.
	SubkeyExists(name string) bool

	// ValueExists reports whether a named value exists.
	ValueExists(name string) bool

	// SubkeyCount returns the number of direct child keys.
	SubkeyCount() (int, error)

	// ValueCount returns the number of values.
	ValueCount() (int, error)

	// OpenSubkey opens a direct child key relative to this one.
	OpenSubkey(name string, access Access) (Key, error)
}

// Registry opens key handles by root and path. The live implementation sits
// in the winreg package; tests substitute an in-memory fake.
type Registry interface {
	Open(root RootKey, path string, access Access) (Key, error)
	Create(root RootKey, path string, access Access) (Key, error)
}

// -----------------------------------------------------------------------------
// External collaborators
// -----------------------------------------------------------------------------

// FileProber answers file-existence questions for cross-referencing registry
// entries against the filesystem. Implementations expand environment
// variables before probing.
type FileProber interface {
	FileExists(path string) bool
	DirExists(path string) bool
	PathExists(path string) bool
}

// ServiceProber reports whether a named service is currently present.
type ServiceProber interface {
	ServiceRunning(name string) bool
}

// -----------------------------------------------------------------------------
// Issues and scanners
// -----------------------------------------------------------------------------

// Severity grades how risky removing a finding is.
type Severity int

const (
	SeverityLow      Severity = iota // safe to remove (MRU entries, etc.)
	SeverityMedium                   // likely orphaned (missing files/programs)
	SeverityHigh                     // potentially problematic (broken COM references)
	SeverityCritical                 // system critical, never removed by default
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Category classifies what kind of registry debris an issue represents.
type Category int

const (
	CategoryUninstallEntry Category = iota
	CategoryFileExtension
	CategoryMRUEntry
	CategoryStartupEntry
	CategorySharedDll
	CategoryServices
	CategoryEmptyKeys
	CategoryCOMEntry
	CategoryAppPath
	CategoryInstaller
	CategoryHelpFile
	CategoryFont
	CategorySoundEvent
	CategoryMUICache
	CategoryContextMenu
	CategoryFirewall
	CategoryTypedURL
	CategoryImageExecution
	CategoryStartMenu
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryUninstallEntry:
		return "UninstallEntry"
	case CategoryFileExtension:
		return "FileExtension"
	case CategoryMRUEntry:
		return "MRUEntry"
	case CategoryStartupEntry:
		return "StartupEntry"
	case CategorySharedDll:
		return "SharedDll"
	case CategoryServices:
		return "Services"
	case CategoryEmptyKeys:
		return "EmptyKeys"
	case CategoryCOMEntry:
		return "COMEntry"
	case CategoryAppPath:
		return "AppPath"
	case CategoryInstaller:
		return "Installer"
	case CategoryHelpFile:
		return "HelpFile"
	case CategoryFont:
		return "Font"
	case CategorySoundEvent:
		return "SoundEvent"
	case CategoryMUICache:
		return "MUICache"
	case CategoryContextMenu:
		return "ContextMenu"
	case CategoryFirewall:
		return "Firewall"
	case CategoryTypedURL:
		return "TypedURL"
	case CategoryImageExecution:
		return "ImageExecution"
	case CategoryStartMenu:
		return "StartMenu"
	default:
		return "Other"
	}
}

// ParseCategory maps a category name back to its Category,
// case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryUninstallEntry; c <= CategoryOther; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, true
		}
	}
	return CategoryOther, false
}

// Issue is one detected finding. Issues are plain values: they hold no live
// key handle, so cleaning re-opens the key by path.
type Issue struct {
	Category      Category
	Severity      Severity
	Description   string
	Details       string
	KeyPath       string // fully-qualified ("HKEY_LOCAL_MACHINE\...")
	ValueName     string // empty when the whole key is the target
	ValueIssue    bool   // true: delete the value; false: delete the key
	EstimatedSize int64  // reclaimable bytes, best effort
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s - %s", i.Severity, i.KeyPath, i.Description)
}

// SelectDefault returns the subset of issues selected for cleaning by
// default. Critical-severity findings are never included.
func SelectDefault(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			continue
		}
		out = append(out, is)
	}
	return out
}

// ScanProgress is the one-way progress callback invoked by scanners. Callers
// marshal to their own goroutine/UI thread; implementations must not block.
type ScanProgress func(scanner, currentKeyPath string, issuesFound int)

// Scanner is one detection unit. Scanners only read registry and filesystem
// state and may run in any order, including concurrently with each other.
type Scanner interface {
	Name() string
	Category() Category
	Enabled() bool
	SetEnabled(bool)

	// Scan walks the scanner's subtree(s) and emits zero or more issues.
	// Cancellation is honored between keys, never mid-read.
	Scan(ctx context.Context, progress ScanProgress) ([]Issue, error)
}

// -----------------------------------------------------------------------------
// Cleaning outcomes
// -----------------------------------------------------------------------------

// Outcome is the terminal disposition of one issue in a cleaning batch.
type Outcome int

const (
	OutcomeCleaned Outcome = iota
	OutcomeFailed
	OutcomeSkipped      // cancelled before reaching the item
	OutcomeProtected    // refused by the protected-key policy
	OutcomeBackupFailed // backup precondition failed, key untouched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleaned:
		return "cleaned"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeProtected:
		return "protected"
	case OutcomeBackupFailed:
		return "backup-failed"
	default:
		return "unknown"
	}
}

// IssueResult records what happened to one issue.
type IssueResult struct {
	Issue   Issue
	Outcome Outcome
	Reason  string
	Err     error
}

// CleanStats aggregates a cleaning batch.
type CleanStats struct {
	Selected       int
	Cleaned        int
	Failed         int
	Skipped        int
	Protected      int
	BackupFailures int
	ForcedDeletes  int // items that needed the escalation chain
	Rebooters      int // items scheduled for delete-on-reboot
	FreedEstimate  int64
	Elapsed        time.Duration
	Results        []IssueResult
	BackupPath     string // artifact written before mutation ("" if disabled)
}
