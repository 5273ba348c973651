// Package backup snapshots registry keys and values to .reg files before
// any destructive operation, and restores them on demand. Each backup is a
// pair of files in the backup directory: <id>.reg holding the exported
// data and <id>.toml holding metadata about when and why it was taken.
package backup
