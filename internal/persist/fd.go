package persist

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ClearCloexec clears the close-on-exec flag so the descriptor survives the
// re-exec. Without this the kernel silently closes every PTY master during
// exec and the restarted image inherits nothing.
func ClearCloexec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("fcntl F_GETFD fd %d: %w", fd, err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags&^unix.FD_CLOEXEC); err != nil {
		return fmt.Errorf("fcntl F_SETFD fd %d: %w", fd, err)
	}
	return nil
}

// ValidateFd probes whether the descriptor is still open. A failed F_GETFD is
// the cheapest reliable liveness check for an inherited fd.
func ValidateFd(fd int) error {
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return &InvalidFdError{Fd: fd}
	}
	return nil
}

// ValidateProcess probes whether pid refers to a live process using the
// zero-signal trick.
func ValidateProcess(pid int) error {
	if err := unix.Kill(pid, 0); err != nil {
		return &ProcessNotRunningError{Pid: pid}
	}
	return nil
}

// WindowSize reads the PTY's current size in cells.
func WindowSize(fd int) (cols, rows uint16, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, fmt.Errorf("ioctl TIOCGWINSZ fd %d: %w", fd, err)
	}
	return ws.Col, ws.Row, nil
}

// SetWindowSize sets the PTY's size in cells, leaving pixel dims untouched.
func SetWindowSize(fd int, cols, rows uint16) error {
	ws := &unix.Winsize{Col: cols, Row: rows}
	if err := unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, ws); err != nil {
		return fmt.Errorf("ioctl TIOCSWINSZ fd %d: %w", fd, err)
	}
	return nil
}

// SendSIGWINCH tells the child its window changed.
func SendSIGWINCH(pid int) error {
	if err := unix.Kill(pid, unix.SIGWINCH); err != nil {
		return fmt.Errorf("kill SIGWINCH pid %d: %w", pid, err)
	}
	return nil
}

// ForceRedraw makes a resumed shell repaint by toggling the window size.
// There is no direct "repaint now" primitive, and well-behaved programs
// ignore a resize to an identical size, so the size is shrunk by one column,
// announced, then restored and announced again. The size is exactly the same
// once this returns.
func ForceRedraw(fd int, pid int, delay time.Duration) error {
	cols, rows, err := WindowSize(fd)
	if err != nil {
		return err
	}

	shrunk := cols - 1
	if cols <= 1 {
		shrunk = cols + 1
	}
	if err := SetWindowSize(fd, shrunk, rows); err != nil {
		return err
	}
	if err := SendSIGWINCH(pid); err != nil {
		return err
	}

	// Give the child a moment to process the intermediate size.
	time.Sleep(delay)

	if err := SetWindowSize(fd, cols, rows); err != nil {
		return err
	}
	return SendSIGWINCH(pid)
}
