// Package installer performs the opaque "install modern SDK" action the
// orchestrator requests when no usable backend is present.
package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

const (
	wingetPackageID  = "Microsoft.DotNet.SDK.8"
	installScriptURL = "https://dot.net/v1/dotnet-install.ps1"
)

// SDKInstaller installs the dotnet SDK, preferring winget and falling back to
// the official dotnet-install script targeting a tool-local directory.
type SDKInstaller struct {
	Runner   ports.ProcessRunner
	Logger   ports.Logger
	ToolsDir string
}

// NewSDKInstaller builds an installer that places the fallback install under toolsDir.
func NewSDKInstaller(runner ports.ProcessRunner, logger ports.Logger, toolsDir string) *SDKInstaller {
	return &SDKInstaller{Runner: runner, Logger: logger, ToolsDir: toolsDir}
}

// Ensure implements ports.Installer. Only the modern SDK is installable; a
// missing legacy compiler ships with the OS and cannot be installed here.
func (i *SDKInstaller) Ensure(ctx context.Context, backend domain.Backend, onLine func(string)) error {
	if backend != domain.BackendDotnet {
		return fmt.Errorf("backend %s cannot be auto-installed", backend)
	}
	if runtime.GOOS != "windows" {
		return fmt.Errorf("automatic SDK installation is only supported on windows")
	}

	if winget, err := exec.LookPath("winget.exe"); err == nil {
		i.Logger.Info("installing SDK via winget", map[string]interface{}{"package": wingetPackageID})
		res, err := i.Runner.Run(ctx, domain.ProcessSpec{
			Name: winget,
			Args: []string{
				"install", "-e", "--id", wingetPackageID,
				"--accept-package-agreements", "--accept-source-agreements", "--silent",
			},
		}, onLine)
		if err == nil && res.ExitCode == 0 {
			return nil
		}
		i.Logger.Warn("winget install failed, falling back to install script", map[string]interface{}{
			"exit_code": res.ExitCode,
		})
	}
	return i.installWithScript(ctx, onLine)
}

func (i *SDKInstaller) installWithScript(ctx context.Context, onLine func(string)) error {
	ps, err := exec.LookPath("powershell.exe")
	if err != nil {
		ps = `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`
	}
	if err := os.MkdirAll(i.ToolsDir, domain.DirectoryPermissions); err != nil {
		return err
	}
	script := filepath.Join(i.ToolsDir, "dotnet-install.ps1")

	download := fmt.Sprintf(
		"$ProgressPreference='SilentlyContinue'; Invoke-WebRequest -UseBasicParsing -Uri '%s' -OutFile '%s'",
		installScriptURL, script,
	)
	res, err := i.Runner.Run(ctx, domain.ProcessSpec{
		Name: ps,
		Args: []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", download},
	}, onLine)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("install script download failed (code %d)", res.ExitCode)
	}

	res, err = i.Runner.Run(ctx, domain.ProcessSpec{
		Name: ps,
		Args: []string{
			"-NoProfile", "-ExecutionPolicy", "Bypass",
			"-File", script,
			"-Channel", "LTS",
			"-InstallDir", i.ToolsDir,
			"-NoPath",
		},
	}, onLine)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("dotnet-install failed (code %d)", res.ExitCode)
	}
	return nil
}

var _ ports.Installer = (*SDKInstaller)(nil)
