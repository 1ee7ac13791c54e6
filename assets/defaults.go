package assets

import (
	_ "embed"
)

// DefaultDiagnosticsYAML contains the embedded default outcome-classification
// rules, used when no user rules file exists.
//
//go:embed defaults/diagnostics.yaml
var DefaultDiagnosticsYAML []byte
