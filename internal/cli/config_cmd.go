// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/personachat/internal/config"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError("%s already exists (use --force to overwrite)", path)
			}
			if err := saveConfig(flags, config.Default()); err != nil {
				return configError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := loadConfig(flags); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.Global().String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configPath(flags)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		initCmd,
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one configuration value",
			Long:  "Keys use dot notation: " + strings.Join(config.Keys(), ", "),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := loadConfig(flags); err != nil {
					return err
				}
				v, err := config.Global().Get(args[0])
				if err != nil {
					return usageError("%v", err)
				}
				if args[0] == "server.session_cookie" && v != "" {
					v = "[REDACTED]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configPath(flags)
				if err != nil {
					return err
				}
				cfg := config.Default()
				if _, err := os.Stat(path); err == nil {
					if cfg, err = config.LoadFromPath(path); err != nil {
						return configError(err)
					}
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return usageError("%v", err)
				}
				if err := cfg.Validate(); err != nil {
					return configError(fmt.Errorf("invalid config: %w", err))
				}
				if err := saveConfig(flags, cfg); err != nil {
					return configError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	return cmd
}

func configPath(flags *globalFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", configError(err)
	}
	return path, nil
}

// saveConfig writes cfg to --config, or to the default TOML file.
func saveConfig(flags *globalFlags, cfg *config.Config) error {
	path := flags.configPath
	switch {
	case path == "":
		return config.Save(cfg)
	case strings.HasSuffix(path, ".json"):
		return config.SaveJSON(cfg, path)
	default:
		return config.SaveTOML(cfg, path)
	}
}
