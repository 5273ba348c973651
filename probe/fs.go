package probe

import "os"

// FS probes the local filesystem, expanding environment variables in the
// probed path first.
type FS struct{}

func (FS) FileExists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(ExpandEnv(path))
	return err == nil && !fi.IsDir()
}

func (FS) DirExists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(ExpandEnv(path))
	return err == nil && fi.IsDir()
}

func (FS) PathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(ExpandEnv(path))
	return err == nil
}
