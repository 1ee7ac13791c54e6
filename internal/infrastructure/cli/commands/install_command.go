package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeittresor/csforge/internal/app"
	"github.com/zeittresor/csforge/internal/domain"
)

// NewInstallCommand creates the install command
func NewInstallCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the dotnet SDK",
		Long:  "Installs the modern dotnet SDK via winget, falling back to the official install script into ~/.csforge/tools/dotnet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.BuildService == nil || container.BuildService.Installer == nil {
				return fmt.Errorf(ErrBuildServiceUnavailable)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Installing dotnet SDK...")
			err := container.BuildService.Installer.Ensure(cmd.Context(), domain.BackendDotnet, func(line string) {
				fmt.Fprintf(out, "  %s\n", line)
			})
			if err != nil {
				return fmt.Errorf("installation failed: %w", err)
			}
			fmt.Fprintln(out, "Done. Run 'csforge doctor' to verify.")
			return nil
		},
	}
}
