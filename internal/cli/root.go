// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/personachat/internal/channel"
	"github.com/jeranaias/personachat/internal/config"
)

// Version information (set at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	server     string
	session    string
	logLevel   string
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "personachat",
		Short:         "Terminal client for persona chat sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.personachat/config.toml)")
	pf.StringVar(&flags.server, "server", "", "chat server base URL")
	pf.StringVar(&flags.session, "session", "", "chat session id")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newChatCommand(flags),
		newSendCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return root
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return configError(fmt.Errorf("load .env: %w", err))
}

// loadConfig resolves the effective configuration: file, environment, then
// flags.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFromPath(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, configError(err)
	}

	if flags.server != "" {
		cfg.Server.URL = flags.server
	}
	if flags.session != "" {
		cfg.Session.ID = flags.session
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, configError(fmt.Errorf("invalid config: %w", err))
	}

	config.SetGlobal(cfg)
	return cfg, nil
}

// channelOptions builds socket options from cfg.
func channelOptions(cfg *config.Config, logger zerolog.Logger) (channel.Options, error) {
	url, err := cfg.ChannelURL()
	if err != nil {
		return channel.Options{}, usageError("cannot build chat url: %v (set --session or PERSONACHAT_SESSION_ID)", err)
	}

	var header http.Header
	if cfg.Server.SessionCookie != "" {
		header = http.Header{"Cookie": []string{cfg.Server.SessionCookie}}
	}

	return channel.Options{
		URL:                  url,
		SessionID:            cfg.Session.ID,
		MaxReconnectAttempts: cfg.Reconnect.MaxAttempts,
		ReconnectDelay:       cfg.ReconnectDelay(),
		HandshakeTimeout:     cfg.HandshakeTimeout(),
		Header:               header,
		Logger:               logger,
	}, nil
}
