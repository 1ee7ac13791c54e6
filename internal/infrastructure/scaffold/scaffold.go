// Package scaffold materializes the ephemeral dotnet project wrapped around a
// single source file.
package scaffold

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

const projectFileName = "App.csproj"

// Materializer writes scaffold plans to disk as temporary project directories.
type Materializer struct{}

// New builds a Materializer.
func New() *Materializer {
	return &Materializer{}
}

// Materialize implements ports.Scaffolder. The returned cleanup func removes
// the temp directory and may be called multiple times; it always runs at
// attempt end regardless of outcome.
func (m *Materializer) Materialize(_ context.Context, plan domain.ScaffoldPlan, sourcePath string) (domain.ScaffoldPlan, func(), error) {
	dir, err := os.MkdirTemp("", "csforge-dotnet-")
	if err != nil {
		return plan, func() {}, fmt.Errorf("create scaffold dir: %w", err)
	}
	var once sync.Once
	cleanup := func() {
		once.Do(func() { _ = os.RemoveAll(dir) })
	}

	plan.Dir = dir
	plan.ProjectFile = filepath.Join(dir, projectFileName)
	plan.PublishDir = filepath.Join(dir, "publish")

	if err := os.WriteFile(plan.ProjectFile, []byte(ProjectXML(plan)), 0o644); err != nil {
		cleanup()
		return plan, func() {}, fmt.Errorf("write project file: %w", err)
	}
	if err := copyFile(sourcePath, filepath.Join(dir, "Program.cs")); err != nil {
		cleanup()
		return plan, func() {}, fmt.Errorf("copy source into scaffold: %w", err)
	}
	return plan, cleanup, nil
}

// CollectArtifact copies the published executable to the requested
// destination and returns its path.
func (m *Materializer) CollectArtifact(plan domain.ScaffoldPlan, destPath string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(plan.PublishDir, "*.exe"))
	if err != nil {
		return "", fmt.Errorf("scan publish dir %s: %w", plan.PublishDir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no executable found in %s", plan.PublishDir)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), domain.DirectoryPermissions); err != nil {
		return "", err
	}
	if err := copyFile(matches[0], destPath); err != nil {
		return "", fmt.Errorf("copy artifact to destination: %w", err)
	}
	return destPath, nil
}

// ProjectXML renders the minimal project descriptor for one attempt.
func ProjectXML(plan domain.ScaffoldPlan) string {
	var props strings.Builder
	if plan.UIStack == domain.UIWinForms {
		props.WriteString("\n    <UseWindowsForms>true</UseWindowsForms>")
	}
	if plan.UIStack == domain.UIWpf {
		props.WriteString("\n    <UseWPF>true</UseWPF>")
	}
	return fmt.Sprintf(`<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>%s</OutputType>
    <TargetFramework>%s</TargetFramework>
    <ImplicitUsings>disable</ImplicitUsings>
    <Nullable>disable</Nullable>%s
  </PropertyGroup>
</Project>
`, plan.OutputType, plan.TargetFramework, props.String())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

var _ ports.Scaffolder = (*Materializer)(nil)
