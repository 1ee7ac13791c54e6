package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zeittresor/csforge/internal/app"
	"github.com/zeittresor/csforge/internal/domain"
	configinfra "github.com/zeittresor/csforge/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect csforge configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(container),
		newConfigSetCommand(container),
		newConfigValidateCommand(container),
		newConfigResetCommand(container),
		newConfigDiffCommand(container),
	)

	return configCmd
}

func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show full configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, cmd.OutOrStdout(), container)
		},
	}
}

func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (value accepts YAML syntax)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := strings.Join(args[1:], " ")
			return setConfigurationValue(cmd, container, key, value)
		},
	}
}

func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.ConfigLoader == nil {
				return fmt.Errorf(ErrConfigLoaderUnavailable)
			}
			if _, err := container.ConfigLoader.Load(cmd.Context()); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

func newConfigResetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.ConfigLoader == nil {
				return fmt.Errorf(ErrConfigLoaderUnavailable)
			}
			if err := container.ConfigLoader.Save(configinfra.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration reset: %s\n", container.ConfigLoader.Path())
			return nil
		},
	}
}

func newConfigDiffCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show diff versus default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.ConfigLoader == nil {
				return fmt.Errorf(ErrConfigLoaderUnavailable)
			}
			cfg, err := container.ConfigLoader.Load(cmd.Context())
			if err != nil {
				return err
			}
			diff := cmp.Diff(configinfra.DefaultConfig(), cfg)
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences from default configuration.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

func showConfiguration(cmd *cobra.Command, out io.Writer, container *app.Container) error {
	if container.ConfigLoader == nil {
		return fmt.Errorf(ErrConfigLoaderUnavailable)
	}
	cfg, err := container.ConfigLoader.Load(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s\n", container.ConfigLoader.Path())
	fmt.Fprint(out, string(raw))
	return nil
}

func setConfigurationValue(cmd *cobra.Command, container *app.Container, key, value string) error {
	if container.ConfigLoader == nil {
		return fmt.Errorf(ErrConfigLoaderUnavailable)
	}
	cfg, err := container.ConfigLoader.Load(cmd.Context())
	if err != nil {
		return err
	}
	if err := applyConfigValue(&cfg, key, value); err != nil {
		return err
	}
	return container.ConfigLoader.Save(cfg)
}

// applyConfigValue routes dotted keys to config fields. The value string is
// parsed as YAML so booleans and numbers round-trip naturally.
func applyConfigValue(cfg *domain.Config, key, value string) error {
	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}

	switch key {
	case "build.default_mode":
		if _, ok := domain.ParseBackendMode(value); !ok {
			return fmt.Errorf("invalid mode %q", value)
		}
		cfg.Build.DefaultMode = value
	case "build.target_framework":
		cfg.Build.TargetFramework = value
	case "build.runtime_id":
		cfg.Build.RuntimeID = value
	case "build.self_contained":
		return decodeInto(&parsed, &cfg.Build.SelfContained)
	case "build.single_file":
		return decodeInto(&parsed, &cfg.Build.SingleFile)
	case "diagnostics.rules_file":
		cfg.Diagnostics.RulesFile = value
	case "history.enabled":
		return decodeInto(&parsed, &cfg.History.Enabled)
	case "history.retention_days":
		return decodeInto(&parsed, &cfg.History.RetentionDays)
	case "logs.dir":
		cfg.Logs.Dir = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

func decodeInto(node *yaml.Node, target interface{}) error {
	return node.Decode(target)
}
