package domain

import "testing"

func TestAnalyzeSourceDetectsWinForms(t *testing.T) {
	code := `using System;
using System.Windows.Forms;

class MainForm : Form
{
    static void Main() { Application.Run(new MainForm()); }
}`
	cls := AnalyzeSource(code)
	if !cls.Has(SignalWinForms) {
		t.Fatalf("winforms not detected, signals %v", cls.Signals)
	}
	if !cls.UsesUI() {
		t.Fatal("UsesUI() should be true for winforms source")
	}
	if !cls.RequiresModern() {
		t.Fatal("winforms source should rule out the legacy default")
	}
}

func TestAnalyzeSourceDetectsWpf(t *testing.T) {
	code := `using System.Windows.Controls;
class App { static void Main() { } }`
	cls := AnalyzeSource(code)
	if !cls.Has(SignalWpf) {
		t.Fatalf("wpf not detected, signals %v", cls.Signals)
	}
}

func TestAnalyzeSourceDetectsModernSyntax(t *testing.T) {
	cases := map[string]string{
		"using-var":  `class P { static void M() { using var r = System.IO.File.OpenRead("x"); } }`,
		"record":     `record Point(int X, int Y);`,
		"init-only":  `class P { public int X { get; init; } }`,
		"nullable":   `class P { string? name; object? boxed; }`,
		"span":       `class P { void M(Span<byte> buf) { } }`,
		"mathf":      `class P { float F() { return MathF.Sqrt(2f); } }`,
		"async-main": `class P { static async Task Main() { } }`,
	}
	for name, code := range cases {
		cls := AnalyzeSource(code)
		if !cls.Has(SignalModernSyntax) {
			t.Errorf("%s: modern syntax not detected, signals %v", name, cls.Signals)
		}
	}
}

func TestAnalyzeSourceDetectsTopLevelStatements(t *testing.T) {
	code := `using System;

Console.WriteLine("hello");`
	cls := AnalyzeSource(code)
	if !cls.Has(SignalTopLevel) {
		t.Fatalf("top-level statements not detected, signals %v", cls.Signals)
	}
}

func TestAnalyzeSourceDetectsFileScopedNamespace(t *testing.T) {
	code := `namespace Demo;

class Program
{
    static void Main() { }
}`
	cls := AnalyzeSource(code)
	if !cls.Has(SignalModernSyntax) {
		t.Fatalf("file-scoped namespace should imply modern syntax, signals %v", cls.Signals)
	}
}

func TestAnalyzeSourcePlainLegacyCodeYieldsNoSignals(t *testing.T) {
	code := `using System;

namespace Demo
{
    class Program
    {
        static void Main(string[] args)
        {
            Console.WriteLine("hello");
        }
    }
}`
	cls := AnalyzeSource(code)
	if len(cls.Signals) != 0 {
		t.Fatalf("expected no signals for legacy code, got %v", cls.Signals)
	}
	if cls.RequiresModern() {
		t.Fatal("legacy code must not require modern backend")
	}
}

func TestAnalyzeSourceAppConfigImpliesWinForms(t *testing.T) {
	code := `ApplicationConfiguration.Initialize();
Application.Run(new MainForm());`
	cls := AnalyzeSource(code)
	if !cls.Has(SignalWinForms) {
		t.Fatalf("ApplicationConfiguration.Initialize should flag winforms, got %v", cls.Signals)
	}
	if !cls.Has(SignalAppConfig) {
		t.Fatalf("appconfig signal missing, got %v", cls.Signals)
	}
}
