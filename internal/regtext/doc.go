// Package regtext reads and writes the textual .reg exchange format
// (Windows Registry Editor Version 5.00). Backups are written as .reg
// files so a standard registry editor can restore them without this tool.
package regtext
