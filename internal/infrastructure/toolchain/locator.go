// Package toolchain discovers compiler backends on the host.
package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

// Locator probes the host for csc.exe and the dotnet SDK. Every Snapshot call
// re-queries the filesystem so state installed between attempts is seen.
type Locator struct {
	// toolsDir is the tool-local SDK install target checked after PATH and
	// the default install locations (filled by the auto-installer).
	toolsDir string
}

// NewLocator builds a locator. toolsDir may be empty to skip the local probe.
func NewLocator(toolsDir string) *Locator {
	return &Locator{toolsDir: toolsDir}
}

// Snapshot implements ports.ToolchainLocator.
func (l *Locator) Snapshot(context.Context) domain.ToolchainSnapshot {
	return domain.ToolchainSnapshot{
		CscPath:    firstExisting(cscCandidates()),
		DotnetPath: l.detectDotnet(),
	}
}

// cscCandidates lists possible csc.exe locations, PATH hit first, then the
// .NET Framework install roots newest version first.
func cscCandidates() []string {
	var candidates []string
	for _, name := range []string{"csc.exe", "csc"} {
		if p, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, p)
			break
		}
	}

	windir := os.Getenv("WINDIR")
	if windir == "" {
		return candidates
	}
	for _, frameworkRoot := range []string{
		filepath.Join(windir, "Microsoft.NET", "Framework64"),
		filepath.Join(windir, "Microsoft.NET", "Framework"),
	} {
		candidates = append(candidates, filepath.Join(frameworkRoot, "v4.0.30319", "csc.exe"))
		versions, err := filepath.Glob(filepath.Join(frameworkRoot, "v*"))
		if err != nil {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(versions)))
		for _, version := range versions {
			candidates = append(candidates, filepath.Join(version, "csc.exe"))
		}
	}
	return candidates
}

func (l *Locator) detectDotnet() string {
	for _, name := range []string{"dotnet", "dotnet.exe"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		if p := filepath.Join(pf, "dotnet", "dotnet.exe"); isFile(p) {
			return p
		}
	}
	if l.toolsDir != "" {
		for _, name := range []string{"dotnet.exe", "dotnet"} {
			if p := filepath.Join(l.toolsDir, name); isFile(p) {
				return p
			}
		}
	}
	return ""
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if isFile(p) {
			return p
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

var _ ports.ToolchainLocator = (*Locator)(nil)
