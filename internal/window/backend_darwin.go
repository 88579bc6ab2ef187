//go:build darwin

package window

// candidateBackends returns the macOS backend
func candidateBackends() []Backend {
	return []Backend{NewDarwinBackend()}
}
