// Package cli wires the cobra command tree around the build orchestrator.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeittresor/csforge/internal/app"
	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	buildCmd := newBuildCommand(container)

	root := &cobra.Command{
		Use:   "csforge [source.cs]",
		Short: "csforge - single-file C# build helper",
		Long:  "csforge compiles a single C# source file into an executable, choosing between the legacy csc compiler and the modern dotnet SDK automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			buildCmd.SetArgs(args)
			return buildCmd.ExecuteContext(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(buildCmd)
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewInstallCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root, nil
}

func newBuildCommand(container *app.Container) *cobra.Command {
	var (
		output        string
		backend       string
		target        string
		selfContained bool
		singleFile    bool
		quiet         bool
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "build <source.cs>",
		Short: "Compile a C# source file into an executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			mode, ok := domain.ParseBackendMode(backend)
			if !ok {
				return fmt.Errorf("unknown backend %q (expected auto, csc or dotnet)", backend)
			}
			targetType, err := parseTarget(target)
			if err != nil {
				return err
			}

			req := domain.BuildRequest{
				Context:    ctx,
				SourcePath: args[0],
				OutputPath: resolveOutput(args[0], output),
				Mode:       mode,
				Target:     targetType,
			}
			if cmd.Flags().Changed("self-contained") {
				req.SelfContained = &selfContained
			}
			if cmd.Flags().Changed("single-file") {
				req.SingleFile = &singleFile
			}

			sink := NewChannelSink(cmd.OutOrStdout(), quiet)
			container.BuildService.Progress = sink
			resp, err := container.BuildService.Run(req)
			sink.Close()

			RenderOutcome(cmd.OutOrStdout(), resp)
			if err != nil {
				return err
			}
			if !resp.Outcome.Succeeded() {
				return fmt.Errorf("build ended with %s", resp.Outcome.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output executable path (default: source name with .exe)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "auto", "Backend: auto, csc or dotnet")
	cmd.Flags().StringVarP(&target, "target", "t", "auto", "Target kind: auto, console or windows")
	cmd.Flags().BoolVar(&selfContained, "self-contained", true, "Publish self-contained (dotnet backend)")
	cmd.Flags().BoolVar(&singleFile, "single-file", true, "Publish as a single file (dotnet backend)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress compiler output lines")
	cmd.Flags().DurationVar(&timeout, "timeout", domain.DefaultBuildTimeout, "Abort the build after this duration")

	return cmd
}

func parseTarget(value string) (domain.TargetType, error) {
	switch domain.TargetType(strings.ToLower(value)) {
	case domain.TargetAuto, "":
		return domain.TargetAuto, nil
	case domain.TargetConsole:
		return domain.TargetConsole, nil
	case domain.TargetWindows, "gui":
		return domain.TargetWindows, nil
	default:
		return domain.TargetAuto, fmt.Errorf("unknown target %q (expected auto, console or windows)", value)
	}
}

func resolveOutput(sourcePath, flag string) string {
	if flag != "" {
		return flag
	}
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(filepath.Dir(sourcePath), base+".exe")
}
