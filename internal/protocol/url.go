// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ChatPath is the path template of the chat socket, relative to the host.
const ChatPath = "/ws/chat/%s/"

// ErrEmptySession is returned when a channel URL is requested without a
// session identifier.
var ErrEmptySession = errors.New("session id is empty")

// ChannelURL derives the socket URL from the server's page URL and the
// session identifier. https pages use wss, everything else uses ws. A bare
// host ("chat.example.com:8000") is treated as http.
func ChannelURL(server, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrEmptySession
	}
	if server == "" {
		return "", errors.New("server url is empty")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}

	var scheme string
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}

	socket := url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   fmt.Sprintf(ChatPath, sessionID),
	}
	return socket.String(), nil
}
