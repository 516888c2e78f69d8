// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/personachat/internal/channel"
	"github.com/jeranaias/personachat/internal/logging"
	"github.com/jeranaias/personachat/internal/protocol"
	"github.com/jeranaias/personachat/internal/util"
)

// DefaultSendTimeout bounds a whole send exchange.
const DefaultSendTimeout = 2 * time.Minute

var (
	// ErrServer wraps error frames received in line mode.
	ErrServer = errors.New("server error")

	// ErrConnectionLost is returned when the socket closes mid-exchange.
	ErrConnectionLost = errors.New("connection lost")
)

type sendFlags struct {
	model   string
	timeout time.Duration
}

func newSendCommand(flags *globalFlags) *cobra.Command {
	sf := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send one message and print the assistant reply",
		Long: `Send connects to the session, sends MESSAGE, streams the assistant
reply to stdout and exits once the response ends.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return usageError("message is empty")
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			logger, _, err := logging.New(logging.Options{
				Mode:  logging.ModeConsole,
				Level: cfg.Log.Level,
				Out:   zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen},
			})
			if err != nil {
				return configError(err)
			}

			opts, err := channelOptions(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmdContext(cmd), sf.timeout)
			defer cancel()

			return sendOnce(ctx, channel.New(opts), text, sf.model, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&sf.model, "model", "", "select a model before sending")
	cmd.Flags().DurationVar(&sf.timeout, "timeout", DefaultSendTimeout, "give up after this long")
	return cmd
}

// sendOnce runs one request/response exchange over ch. Assistant fragments
// are written to out as they arrive.
func sendOnce(ctx context.Context, ch *channel.Channel, text, model string, out io.Writer, logger zerolog.Logger) error {
	ch.Connect(ctx)
	defer ch.Close()

	sent := false
	for {
		select {
		case <-ctx.Done():
			return timeoutError(ctx)

		case ev, ok := <-ch.Events():
			// Cancellation tears the channel down, which emits a close.
			if ctx.Err() != nil {
				return timeoutError(ctx)
			}
			if !ok {
				return networkError(ErrConnectionLost)
			}

			switch ev.Kind {
			case channel.EventOpen:
				if sent {
					continue
				}
				if model != "" {
					if err := ch.Send(protocol.NewSelectModel(model)); err != nil {
						return networkError(err)
					}
				}
				if err := ch.Send(protocol.ChatMessage{Message: util.EscapeHTML(text)}); err != nil {
					return networkError(err)
				}
				sent = true

			case channel.EventMessage:
				done, err := handleReply(ev.Message, out, logger)
				if err != nil || done {
					return err
				}

			case channel.EventClose:
				if sent || !ev.Close.WillReconnect {
					return networkError(fmt.Errorf("%w (code %d)", ErrConnectionLost, ev.Close.Code))
				}
				logger.Warn().Int("attempt", ev.Close.Attempt).Msg("connection closed, retrying")

			case channel.EventError:
				logger.Warn().Err(ev.Err).Msg("chat connection error")
			}
		}
	}
}

func timeoutError(ctx context.Context) error {
	return &ExitError{Code: ExitTimeoutError, Err: fmt.Errorf("waiting for reply: %w", ctx.Err())}
}

// handleReply writes one inbound frame. It reports true once the response
// has ended.
func handleReply(in protocol.Inbound, out io.Writer, logger zerolog.Logger) (bool, error) {
	switch in.Type {
	case protocol.TypeResponseChunk:
		_, err := io.WriteString(out, in.Message)
		return false, err
	case protocol.TypeResponseEnd:
		_, err := io.WriteString(out, "\n")
		return true, err
	case protocol.TypeError:
		return true, fmt.Errorf("%w: %s", ErrServer, in.Message)
	case protocol.TypeModelSelected:
		logger.Info().Str("model", in.Model).Msg("model selected")
	default:
		logger.Debug().Str("type", in.Type.String()).Msg("ignoring frame")
	}
	return false, nil
}
