//go:build windows

package probe

import (
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCM reports service state by querying the service control manager.
type SCM struct{}

func (SCM) ServiceRunning(name string) bool {
	m, err := mgr.Connect()
	if err != nil {
		return false
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return false
	}
	defer s.Close()

	st, err := s.Query()
	if err != nil {
		return false
	}
	return st.State == svc.Running
}
