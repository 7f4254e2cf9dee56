package pty

import (
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePTY(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no PTY device available")
	}
}

func testSize() WindowSize {
	return WindowSize{Rows: 24, Cols: 80, CellWidth: 8, CellHeight: 16}
}

func spawnShell(t *testing.T, script string) *Handle {
	t.Helper()
	h, err := Spawn(SpawnConfig{
		Program: "/bin/sh",
		Args:    []string{"-c", script},
		Env:     os.Environ(),
		Size:    testSize(),
	})
	require.NoError(t, err)
	return h
}

// waitForExit polls until the child reports an exit event or the deadline
// passes.
func waitForExit(t *testing.T, h *Handle) *ChildEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if ev := h.PollChildEvent(); ev != nil {
			return ev
		}
		select {
		case <-deadline:
			t.Fatal("child did not exit in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPollWhileRunning(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "sleep 30")
	defer h.Close()

	// Child was just spawned; nothing should be pending.
	assert.Nil(t, h.PollChildEvent())
	assert.False(t, h.Exited())
}

func TestExitCodeReported(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "exit 7")
	defer h.Close()

	ev := waitForExit(t, h)
	require.NotNil(t, ev.Code)
	assert.Equal(t, 7, *ev.Code)

	// Once reaped, further polls stay quiet.
	assert.Nil(t, h.PollChildEvent())
}

func TestSignalDeathHasNoCode(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "kill -KILL $$")
	defer h.Close()

	ev := waitForExit(t, h)
	assert.Nil(t, ev.Code)
}

func TestResizeRoundTrip(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "sleep 30")
	defer h.Close()

	err := h.Resize(WindowSize{Rows: 40, Cols: 132, CellWidth: 8, CellHeight: 16})
	require.NoError(t, err)

	cols, rows, err := h.Size()
	require.NoError(t, err)
	assert.Equal(t, uint16(132), cols)
	assert.Equal(t, uint16(40), rows)
}

func TestWriteAfterExit(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "exit 0")
	defer h.Close()

	waitForExit(t, h)

	_, err := h.Write([]byte("echo hi\n"))
	assert.ErrorIs(t, err, ErrExited)
	assert.ErrorIs(t, h.Resize(testSize()), ErrExited)
}

func TestSpawnError(t *testing.T) {
	requirePTY(t)

	_, err := Spawn(SpawnConfig{
		Program: "/nonexistent/shell-binary",
		Env:     os.Environ(),
		Size:    testSize(),
	})
	require.Error(t, err)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "/nonexistent/shell-binary", spawnErr.Program)
}

func TestRawPartsRestore(t *testing.T) {
	requirePTY(t)

	orig := spawnShell(t, "sleep 0.3; exit 7")

	fd, pid := orig.IntoRawParts()
	restored := RestoreFromRaw(fd, pid)
	defer restored.Close()

	// The detached handle must not poll, reap, or close anything.
	assert.Nil(t, orig.PollChildEvent())
	require.NoError(t, orig.Close())

	// Exit detection moves over to the restored handle wholesale.
	ev := waitForExit(t, restored)
	require.NotNil(t, ev.Code)
	assert.Equal(t, 7, *ev.Code)
	assert.True(t, restored.Restored())

	runtime.KeepAlive(orig)
}

func TestWriteReadLoopback(t *testing.T) {
	requirePTY(t)

	h := spawnShell(t, "read line; echo got:$line")
	defer h.Close()

	_, err := h.Write([]byte("hello\n"))
	require.NoError(t, err)

	buf := make([]byte, 4096)
	deadline := time.Now().Add(5 * time.Second)
	var out []byte
	for time.Now().Before(deadline) {
		n, err := h.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
		if strings.Contains(string(out), "got:hello") {
			break
		}
	}
	assert.Contains(t, string(out), "got:hello")
}
