package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	creack "github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ErrExited is returned by Write and Resize once the child has exited.
var ErrExited = errors.New("pty: child has exited")

// SpawnError reports a failed fork/exec of the shell program.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// WindowSize describes the terminal dimensions in cells plus the pixel
// metrics of one cell. Cell metrics must be positive; they are only used to
// derive the pixel width/height reported to the kernel.
type WindowSize struct {
	Rows       uint16
	Cols       uint16
	CellWidth  uint16
	CellHeight uint16
}

func (w WindowSize) winsize() *creack.Winsize {
	return &creack.Winsize{
		Rows: w.Rows,
		Cols: w.Cols,
		X:    w.Cols * w.CellWidth,
		Y:    w.Rows * w.CellHeight,
	}
}

// ChildEvent reports the termination of the child attached to a PTY.
type ChildEvent struct {
	// Code holds the exit status for a normal exit and is nil when the
	// child was killed by a signal.
	Code *int
}

// SpawnConfig describes the child to attach to a fresh PTY.
type SpawnConfig struct {
	Program string
	Args    []string
	Env     []string // full child environment
	Dir     string
	Size    WindowSize
}

// Handle owns one PTY master descriptor and the identity of the process on
// its slave side. Exactly one Handle exists per live child.
type Handle struct {
	master *os.File
	cmd    *exec.Cmd // nil when restored from a raw descriptor
	pid    int
	sub    *subscription
	exited bool
	// detached means ownership of the descriptor moved out via
	// IntoRawParts; teardown must not touch the child or the fd.
	detached bool
}

// Spawn allocates a PTY pair and starts the child attached to its slave side.
// The child is detached into its own session with the slave as controlling
// terminal (handled by the pty library's fork/exec attributes).
func Spawn(cfg SpawnConfig) (*Handle, error) {
	if cfg.Program == "" {
		return nil, &SpawnError{Program: cfg.Program, Err: errors.New("no program given")}
	}

	cmd := exec.Command(cfg.Program, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env

	// Register for SIGCHLD before the child exists; a shell that exits
	// immediately must not beat the listener.
	sub := chld.subscribe()

	master, err := creack.StartWithSize(cmd, cfg.Size.winsize())
	if err != nil {
		sub.close()
		return nil, &SpawnError{Program: cfg.Program, Err: err}
	}

	return &Handle{
		master: master,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		sub:    sub,
	}, nil
}

// RestoreFromRaw reconstructs a Handle from a descriptor/pid pair inherited
// across a re-exec. No validation happens here: the caller must have checked
// that fd is an open PTY master and pid a live process (see persist probes).
// The restored handle has no child object, so exit collection and teardown go
// through direct wait calls instead.
func RestoreFromRaw(fd int, pid int) *Handle {
	return &Handle{
		master: os.NewFile(uintptr(fd), "ptmx"),
		pid:    pid,
		sub:    chld.subscribe(),
	}
}

// Read reads output bytes from the master descriptor. Safe to call from the
// session's reader goroutine; it blocks until output or child exit.
func (h *Handle) Read(p []byte) (int, error) {
	return h.master.Read(p)
}

// Write sends input bytes to the child.
func (h *Handle) Write(p []byte) (int, error) {
	if h.exited {
		return 0, ErrExited
	}
	return h.master.Write(p)
}

// Resize issues TIOCSWINSZ with the cell counts and derived pixel
// dimensions. A failure against a live descriptor means the PTY subsystem is
// corrupted; callers treat it as fatal.
func (h *Handle) Resize(size WindowSize) error {
	if h.exited {
		return ErrExited
	}
	return creack.Setsize(h.master, size.winsize())
}

// Size queries the current window size in cells.
func (h *Handle) Size() (cols, rows uint16, err error) {
	ws, err := creack.GetsizeFull(h.master)
	if err != nil {
		return 0, 0, err
	}
	return ws.Cols, ws.Rows, nil
}

// PollChildEvent checks, without blocking, whether the child has exited.
// It consumes at most one pending SIGCHLD notification and collects the exit
// status with WNOHANG, so the child is reaped exactly once.
func (h *Handle) PollChildEvent() *ChildEvent {
	if h.exited || h.detached {
		return nil
	}

	select {
	case <-h.sub.ch:
	default:
		return nil
	}

	var status unix.WaitStatus
	pid, err := unix.Wait4(h.pid, &status, unix.WNOHANG, nil)
	if err != nil || pid != h.pid {
		// SIGCHLD was for some other child, or ours is still running.
		return nil
	}

	switch {
	case status.Exited():
		h.exited = true
		code := status.ExitStatus()
		return &ChildEvent{Code: &code}
	case status.Signaled():
		h.exited = true
		return &ChildEvent{}
	default:
		return nil
	}
}

// IntoRawParts detaches ownership of the descriptor and pid ahead of a
// re-exec. The handle's teardown becomes a no-op: the child must outlive this
// process image, and the descriptor must stay open for the next one. The
// caller must keep the handle reachable until the exec happens so the
// finalizer on the underlying file cannot close the descriptor early.
func (h *Handle) IntoRawParts() (fd int, pid int) {
	h.detached = true
	if h.sub != nil {
		h.sub.close()
		h.sub = nil
	}
	return int(h.master.Fd()), h.pid
}

// Fd returns the raw master descriptor.
func (h *Handle) Fd() int { return int(h.master.Fd()) }

// Pid returns the child process id.
func (h *Handle) Pid() int { return h.pid }

// Restored reports whether this handle was reconstructed from a raw
// descriptor rather than spawned.
func (h *Handle) Restored() bool { return h.cmd == nil }

// Exited reports whether the child has already been reaped.
func (h *Handle) Exited() bool { return h.exited }

// Close tears the handle down. A still-running child is hung up and reaped so
// no zombie is left behind; detached handles are left entirely alone.
func (h *Handle) Close() error {
	if h.detached {
		return nil
	}
	if !h.exited {
		_ = unix.Kill(h.pid, unix.SIGHUP)
		if h.cmd != nil {
			_ = h.cmd.Wait()
		} else {
			_, _ = unix.Wait4(h.pid, nil, 0, nil)
		}
		h.exited = true
	}
	if h.sub != nil {
		h.sub.close()
		h.sub = nil
	}
	return h.master.Close()
}
