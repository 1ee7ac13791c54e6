package services

import (
	"strings"

	"github.com/zeittresor/csforge/internal/domain"
)

// SelectBackend combines the classification result with the requested mode
// into a definitive backend choice plus an ordered fallback list.
//
// Explicit modes are never overridden: the user asked for a specific backend
// and silently bypassing that would hide the real failure. Auto mode
// optimizes for the common case (plain legacy-compatible code builds fast
// with no scaffold) while recovering when the classifier under-detects.
func SelectBackend(mode domain.BackendMode, cls domain.ClassificationResult) domain.BackendChoice {
	switch mode {
	case domain.ModeLegacy:
		return domain.BackendChoice{Primary: domain.BackendCsc, Reasons: cls.Signals}
	case domain.ModeModern:
		return domain.BackendChoice{Primary: domain.BackendDotnet, Reasons: cls.Signals}
	}

	if cls.RequiresModern() {
		// Legacy cannot support the detected constructs, so there is no point
		// falling back to it.
		return domain.BackendChoice{Primary: domain.BackendDotnet, Reasons: cls.Signals}
	}
	return domain.BackendChoice{
		Primary:   domain.BackendCsc,
		Fallbacks: []domain.Backend{domain.BackendDotnet},
		Reasons:   cls.Signals,
	}
}

// CscArgs builds the legacy compiler argument vector. WinForms sources get
// the desktop assembly references added automatically.
func CscArgs(outputPath string, target domain.TargetType, cls domain.ClassificationResult, code string) []string {
	targetFlag := "exe"
	if target == domain.TargetWindows || (target == domain.TargetAuto && cls.UsesUI()) {
		targetFlag = "winexe"
	}
	args := []string{"/nologo", "/target:" + targetFlag, "/out:" + outputPath}
	if cls.Has(domain.SignalWinForms) {
		args = append(args, "/r:System.Windows.Forms.dll")
	}
	if containsDrawing(code) {
		args = append(args, "/r:System.Drawing.dll")
	}
	return args
}

func containsDrawing(code string) bool {
	return strings.Contains(code, "System.Drawing")
}
