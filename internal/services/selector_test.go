package services

import (
	"strings"
	"testing"

	"github.com/zeittresor/csforge/internal/domain"
)

func TestSelectBackendPlainSourcePrefersLegacyWithFallback(t *testing.T) {
	cls := domain.AnalyzeSource("class Program { static void Main() { System.Console.WriteLine(\"hi\"); } }")
	choice := SelectBackend(domain.ModeAuto, cls)

	if choice.Primary != domain.BackendCsc {
		t.Fatalf("expected csc primary, got %s", choice.Primary)
	}
	if len(choice.Fallbacks) != 1 || choice.Fallbacks[0] != domain.BackendDotnet {
		t.Fatalf("expected dotnet fallback, got %v", choice.Fallbacks)
	}
}

func TestSelectBackendModernMarkersForceModern(t *testing.T) {
	sources := map[string]string{
		"winforms":      "using System.Windows.Forms;\nclass F : Form { }",
		"appconfig":     "ApplicationConfiguration.Initialize();\nApplication.Run(new Form());",
		"using-var":     "class P { static void M() { using var f = System.IO.File.OpenRead(\"x\"); } }",
		"nullable":      "class P { string? name; }",
		"record":        "record Point(int X, int Y);",
		"span":          "class P { void M(Span<byte> data) { } }",
		"file-scope-ns": "namespace Demo;\n\nclass P { }",
	}
	for name, code := range sources {
		choice := SelectBackend(domain.ModeAuto, domain.AnalyzeSource(code))
		if choice.Primary != domain.BackendDotnet {
			t.Errorf("%s: expected dotnet primary, got %s (signals %v)", name, choice.Primary, choice.Reasons)
		}
		if len(choice.Fallbacks) != 0 {
			t.Errorf("%s: modern-required source must not fall back to legacy, got %v", name, choice.Fallbacks)
		}
	}
}

func TestSelectBackendExplicitModesHaveNoFallback(t *testing.T) {
	cls := domain.AnalyzeSource("using System.Windows.Forms;\nclass F : Form { }")

	legacy := SelectBackend(domain.ModeLegacy, cls)
	if legacy.Primary != domain.BackendCsc || len(legacy.Fallbacks) != 0 {
		t.Fatalf("explicit legacy: got %+v", legacy)
	}

	modern := SelectBackend(domain.ModeModern, domain.ClassificationResult{})
	if modern.Primary != domain.BackendDotnet || len(modern.Fallbacks) != 0 {
		t.Fatalf("explicit modern: got %+v", modern)
	}
}

func TestCscArgsConsoleTarget(t *testing.T) {
	args := CscArgs("/tmp/out.exe", domain.TargetAuto, domain.ClassificationResult{}, "class P { }")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "/nologo") {
		t.Fatalf("missing /nologo: %v", args)
	}
	if !strings.Contains(joined, "/target:exe") {
		t.Fatalf("plain source should target exe: %v", args)
	}
	if !strings.Contains(joined, "/out:/tmp/out.exe") {
		t.Fatalf("missing output flag: %v", args)
	}
	if strings.Contains(joined, "System.Windows.Forms.dll") {
		t.Fatalf("console build must not reference winforms: %v", args)
	}
}

func TestCscArgsWinFormsAddsDesktopReferences(t *testing.T) {
	code := "using System.Windows.Forms;\nusing System.Drawing;\nclass F : Form { }"
	cls := domain.AnalyzeSource(code)
	args := CscArgs("/tmp/gui.exe", domain.TargetAuto, cls, code)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "/target:winexe") {
		t.Fatalf("UI source should target winexe: %v", args)
	}
	if !strings.Contains(joined, "/r:System.Windows.Forms.dll") {
		t.Fatalf("missing winforms reference: %v", args)
	}
	if !strings.Contains(joined, "/r:System.Drawing.dll") {
		t.Fatalf("missing drawing reference: %v", args)
	}
}

func TestCscArgsExplicitWindowsTargetOverridesClassification(t *testing.T) {
	args := CscArgs("/tmp/out.exe", domain.TargetWindows, domain.ClassificationResult{}, "class P { }")
	if !strings.Contains(strings.Join(args, " "), "/target:winexe") {
		t.Fatalf("explicit windows target ignored: %v", args)
	}
}
