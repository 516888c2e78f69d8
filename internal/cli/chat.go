// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/personachat/internal/channel"
	"github.com/jeranaias/personachat/internal/events"
	"github.com/jeranaias/personachat/internal/logging"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/ui/chat"
	"github.com/jeranaias/personachat/internal/ui/styles"
)

// ErrNotTerminal is returned by chat when stdin is not a terminal.
var ErrNotTerminal = errors.New("interactive chat requires a terminal (use 'personachat send' for scripts)")

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}
}

// isTerminal is replaced in tests.
var isTerminal = IsTTY

func runChat(cmd *cobra.Command, flags *globalFlags) error {
	if !isTerminal() {
		return &ExitError{Code: ExitUsageError, Err: ErrNotTerminal}
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Mode:  logging.ModeFile,
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		return configError(err)
	}
	defer closer.Close()

	opts, err := channelOptions(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	ch := channel.New(opts)
	bus := events.NewBus()
	toggle := persona.New(persona.Options{
		Bus:       bus,
		Sender:    ch,
		SessionID: ch.SessionID,
		Logger:    logger,
	})
	defer toggle.Close()

	var homeURL string
	m := chat.New(chat.Options{
		Context:           ctx,
		Channel:           ch,
		Bus:               bus,
		Persona:           toggle,
		Theme:             styles.NewTheme(cfg.UI.Theme),
		Logger:            logger,
		HomeURL:           cfg.Session.HomeURL,
		HasSidebar:        cfg.UI.Sidebar,
		SidebarOpen:       cfg.UI.SidebarOpen,
		SidebarBreakpoint: cfg.UI.SidebarBreakpoint,
		MaxInputHeight:    cfg.UI.MaxInputHeight,
		Navigator: chat.NavigatorFunc(func(url string) error {
			homeURL = url
			return nil
		}),
	})

	logger.Info().Str("session", cfg.Session.ID).Str("server", cfg.Server.URL).Msg("starting chat")

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat: %w", err)
	}
	_ = ch.Close()

	if homeURL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "All chats cleared. Open %s to start a new chat.\n", homeURL)
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
