// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/personachat/internal/config"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// isolateEnv points HOME at a temp dir and clears PERSONACHAT_* variables.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "PERSONACHAT_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	return home
}

// replyFunc answers one decoded client frame.
type replyFunc func(conn *websocket.Conn, frame map[string]any)

type backend struct {
	srv *httptest.Server

	mu     sync.Mutex
	frames []map[string]any
	paths  []string
}

func newBackend(t *testing.T, reply replyFunc) *backend {
	t.Helper()
	b := &backend{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		b.mu.Lock()
		b.paths = append(b.paths, r.URL.Path)
		b.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			b.mu.Lock()
			b.frames = append(b.frames, frame)
			b.mu.Unlock()
			if reply != nil {
				reply(conn, frame)
			}
		}
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) received() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.frames...)
}

func streamReply(chunks ...string) replyFunc {
	return func(conn *websocket.Conn, frame map[string]any) {
		if _, ok := frame["message"]; !ok {
			return
		}
		conn.WriteJSON(map[string]string{"type": "assistant_response_start"})
		for _, c := range chunks {
			conn.WriteJSON(map[string]string{"type": "assistant_response_chunk", "message": c})
		}
		conn.WriteJSON(map[string]string{"type": "assistant_response_end"})
	}
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// =============================================================================
// SEND
// =============================================================================

func TestSendStreamsReply(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, streamReply("Hi ", "there"))

	out, _, err := run(t, "--server", b.srv.URL, "--session", "abc123", "send", "hello", "<b>")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)

	frames := b.received()
	require.Len(t, frames, 1)
	assert.Equal(t, "hello &lt;b&gt;", frames[0]["message"])
	assert.Equal(t, "abc123", frames[0]["session_id"])

	b.mu.Lock()
	assert.Equal(t, []string{"/ws/chat/abc123/"}, b.paths)
	b.mu.Unlock()
}

func TestSendSelectsModelFirst(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, func(conn *websocket.Conn, frame map[string]any) {
		if frame["type"] == "select_model" {
			conn.WriteJSON(map[string]string{"type": "model_selected", "model": "gpt-x"})
			return
		}
		streamReply("ok")(conn, frame)
	})

	out, _, err := run(t, "--server", b.srv.URL, "--session", "s1", "send", "--model", "gpt-x", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	frames := b.received()
	require.Len(t, frames, 2)
	assert.Equal(t, "select_model", frames[0]["type"])
	assert.Equal(t, "gpt-x", frames[0]["model"])
	assert.Equal(t, "hi", frames[1]["message"])
}

func TestSendServerError(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, func(conn *websocket.Conn, frame map[string]any) {
		conn.WriteJSON(map[string]string{"type": "error", "message": "pipeline failed"})
	})

	_, _, err := run(t, "--server", b.srv.URL, "--session", "s1", "send", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "pipeline failed")
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

func TestSendConnectionLost(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, func(conn *websocket.Conn, frame map[string]any) {
		conn.Close()
	})

	_, _, err := run(t, "--server", b.srv.URL, "--session", "s1", "send", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

func TestSendTimeout(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, nil)

	start := time.Now()
	_, _, err := run(t, "--server", b.srv.URL, "--session", "s1", "send", "--timeout", "150ms", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitTimeoutError, GetExitCode(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendRequiresSession(t *testing.T) {
	isolateEnv(t)

	_, _, err := run(t, "send", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestSendRejectsBlankMessage(t *testing.T) {
	isolateEnv(t)

	_, _, err := run(t, "--session", "s1", "send", "   ")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestSessionFromEnvironment(t *testing.T) {
	isolateEnv(t)
	b := newBackend(t, streamReply("env"))
	t.Setenv("PERSONACHAT_SESSION_ID", "from-env")

	out, _, err := run(t, "--server", b.srv.URL, "send", "hi")
	require.NoError(t, err)
	assert.Equal(t, "env\n", out)
	assert.Equal(t, "from-env", b.received()[0]["session_id"])
}

// =============================================================================
// CHAT
// =============================================================================

func TestChatRequiresTerminal(t *testing.T) {
	isolateEnv(t)
	orig := isTerminal
	isTerminal = func() bool { return false }
	defer func() { isTerminal = orig }()

	_, _, err := run(t, "--session", "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotTerminal)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = run(t, "--session", "s1", "chat")
	assert.ErrorIs(t, err, ErrNotTerminal)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigPath(t *testing.T) {
	home := isolateEnv(t)

	out, _, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".personachat", "config.toml"), strings.TrimSpace(out))

	out, _, err = run(t, "--config", "/tmp/other.toml", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.toml", strings.TrimSpace(out))
}

func TestConfigInitSetGet(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "custom", "config.toml")

	out, _, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = run(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = run(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	_, _, err = run(t, "--config", path, "config", "set", "ui.theme", "dark")
	require.NoError(t, err)

	out, _, err = run(t, "--config", path, "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", strings.TrimSpace(out))

	_, _, err = run(t, "--config", path, "config", "set", "ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, _, err = run(t, "--config", path, "config", "get", "ui.nope")
	assert.Error(t, err)
}

func TestConfigShowAppliesFlags(t *testing.T) {
	isolateEnv(t)

	out, _, err := run(t, "--server", "https://chat.example.com", "--session", "s9", "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "https://chat.example.com", cfg.Server.URL)
	assert.Equal(t, "s9", cfg.Session.ID)
}

func TestConfigDefaultLocation(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, ".personachat", "config.toml")

	out, _, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = run(t, "config", "set", "reconnect.max_attempts", "9")
	require.NoError(t, err)

	out, _, err = run(t, "config", "get", "reconnect.max_attempts")
	require.NoError(t, err)
	assert.Equal(t, "9", strings.TrimSpace(out))
}

func TestConfigCommandsPublishGlobal(t *testing.T) {
	isolateEnv(t)

	_, _, err := run(t, "--session", "global-1", "config", "get", "session.id")
	require.NoError(t, err)
	assert.Equal(t, "global-1", config.Global().Session.ID)
}

func TestConfigShowRedactsCookie(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PERSONACHAT_SESSION_COOKIE", "sessionid=secret")

	out, _, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")

	out, _, err = run(t, "config", "get", "server.session_cookie")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")
}

func TestInvalidLogLevelIsConfigError(t *testing.T) {
	isolateEnv(t)

	_, _, err := run(t, "--log-level", "loud", "config", "show")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

// =============================================================================
// VERSION / EXIT CODES
// =============================================================================

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "personachat "+Version)
	assert.Contains(t, out, "commit: "+GitCommit)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitGeneralError, GetExitCode(assert.AnError))
	assert.Equal(t, ExitNetworkError, GetExitCode(networkError(assert.AnError)))
	assert.Equal(t, ExitConfigError, GetExitCode(config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}))
}
