// Package scan detects registry debris. Each scanner walks its own corner
// of the registry read-only, cross-references the filesystem and service
// probes, and emits issues. The Runner executes enabled scanners
// concurrently and merges their findings in registration order.
package scan
