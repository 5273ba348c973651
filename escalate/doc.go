// Package escalate forces deletion of registry keys the caller cannot
// touch with its current rights. The chain is strict and each step's
// failure is non-fatal to the next: enable token privileges, take
// ownership for Administrators, rewrite the DACL, retry the delete, and
// as a last resort schedule the key for deletion at next boot.
package escalate
