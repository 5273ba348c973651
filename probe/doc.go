// Package probe answers questions about the world outside the registry:
// whether files and directories referenced by registry values exist, and
// whether named services are present. Scanners depend on these answers to
// decide what counts as stale.
package probe
