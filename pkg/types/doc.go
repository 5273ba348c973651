// Package types defines the core data model and public interfaces of the
// regsweep registry cleaning engine.
//
// It carries no implementation: the live registry sits behind the Registry
// and Key interfaces (implemented by the winreg package, faked in tests),
// detection units implement Scanner, and all fallible registry operations
// surface *Error values with a stable ErrKind so callers can branch on
// intent rather than message text.
//
// Registry values are modeled as a tagged union: Value pairs a declared
// RegType with a sealed ValueData variant, and the value package's codec
// guarantees the two always agree, even for truncated or corrupted input.
package types
