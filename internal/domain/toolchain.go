package domain

// ToolchainSnapshot captures which compiler backends are present on the host
// at one point in time. It is queried at selection time and re-queried after
// every install request, never cached indefinitely.
type ToolchainSnapshot struct {
	CscPath    string
	DotnetPath string
}

// Has reports whether the given backend is available in this snapshot.
func (s ToolchainSnapshot) Has(backend Backend) bool {
	switch backend {
	case BackendCsc:
		return s.CscPath != ""
	case BackendDotnet:
		return s.DotnetPath != ""
	default:
		return false
	}
}

// Path returns the executable path for the given backend, empty when missing.
func (s ToolchainSnapshot) Path(backend Backend) string {
	switch backend {
	case BackendCsc:
		return s.CscPath
	case BackendDotnet:
		return s.DotnetPath
	default:
		return ""
	}
}

// Empty reports whether no backend at all was found.
func (s ToolchainSnapshot) Empty() bool {
	return s.CscPath == "" && s.DotnetPath == ""
}
