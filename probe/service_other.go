//go:build !windows

package probe

// SCM is the service control manager prober. Off Windows there is no SCM
// to ask, so every service reads as not running.
type SCM struct{}

func (SCM) ServiceRunning(string) bool { return false }
