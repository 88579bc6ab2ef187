//go:build windows

package window

// candidateBackends returns the Windows backend
func candidateBackends() []Backend {
	return []Backend{NewWindowsBackend()}
}
