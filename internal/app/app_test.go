package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptyhost/ptyhost/internal/config"
	"github.com/ptyhost/ptyhost/internal/ipc"
	"github.com/ptyhost/ptyhost/internal/logging"
	"github.com/ptyhost/ptyhost/internal/session"
)

func requirePTY(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no PTY device available")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Socket.Path = filepath.Join(t.TempDir(), "s.sock")
	cfg.State.Path = filepath.Join(t.TempDir(), "state.json")
	cfg.Shell.Program = "/bin/sh"
	return cfg
}

// dialWithRetry waits for the owner loop to come up.
func dialWithRetry(t *testing.T, path string) *ipc.Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c, err := ipc.Dial(path)
		if err == nil {
			if perr := c.Ping(); perr == nil {
				return c
			}
			c.Close()
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("daemon never answered on control socket")
	return nil
}

func TestOwnerLoopAppliesMutations(t *testing.T) {
	requirePTY(t)

	cfg := testConfig(t)
	a, err := New(cfg, logging.NewNop(), session.NewStore())
	require.NoError(t, err)

	// Spawn before Run so the session id is known to the test.
	s, err := a.spawnSession()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	c := dialWithRetry(t, cfg.Socket.Path)
	defer c.Close()

	for _, req := range []ipc.Request{
		{Cmd: ipc.CmdRename, ID: s.ID, Title: "build"},
		{Cmd: ipc.CmdSetDescription, ID: s.ID, Text: "the build"},
		{Cmd: ipc.CmdSetIcon, ID: s.ID, Icon: ""},
		{Cmd: ipc.CmdNotify, ID: s.ID},
		{Cmd: ipc.CmdMoveToGroup, ID: s.ID, Group: "work"},
	} {
		resp, err := c.Do(req)
		require.NoError(t, err)
		assert.True(t, resp.OK, "request %s failed: %s", req.Cmd, resp.Error)
	}

	// Unknown sessions produce structured errors, not dropped requests.
	resp, err := c.Do(ipc.Request{Cmd: ipc.CmdRename, ID: "term_missing", Title: "x"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "not found")

	resp, err = c.Do(ipc.Request{Cmd: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)

	a.Stop()
	require.NoError(t, <-done)

	// Run has returned; the store is safe to inspect directly.
	assert.Equal(t, "build", s.CustomTitle)
	assert.Equal(t, "the build", s.CLIDescription)
	assert.True(t, s.Notified)
	assert.Equal(t, "work", s.Group)

	require.NoError(t, a.Close())
}

func TestRunExitsWhenLastSessionCloses(t *testing.T) {
	requirePTY(t)

	cfg := testConfig(t)
	a, err := New(cfg, logging.NewNop(), session.NewStore())
	require.NoError(t, err)
	defer a.Close()

	s, err := a.spawnSession()
	require.NoError(t, err)

	// Ask the shell to exit before handing the handle to the owner loop;
	// the loop should reap it and stop on its own.
	_, err = s.Handle.Write([]byte("exit 0\n"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("owner loop did not stop after last session exited")
	}
}

func TestSpawnSeedsChildEnvironment(t *testing.T) {
	requirePTY(t)

	cfg := testConfig(t)
	a, err := New(cfg, logging.NewNop(), session.NewStore())
	require.NoError(t, err)
	defer a.Close()

	s, err := a.spawnSession()
	require.NoError(t, err)

	_, err = s.Handle.Write([]byte("echo id=$PTYHOST_SESSION sock=$PTYHOST_SOCKET\nexit\n"))
	require.NoError(t, err)

	// The session's reader goroutine owns the master; drain through the
	// output buffer like the content layer would.
	deadline := time.Now().Add(5 * time.Second)
	var out []byte
	for time.Now().Before(deadline) {
		out = append(out, s.Output.ReadAll()...)
		if strings.Contains(string(out), "sock="+cfg.Socket.Path) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Contains(t, string(out), "id="+s.ID)
	assert.Contains(t, string(out), "sock="+cfg.Socket.Path)
}
