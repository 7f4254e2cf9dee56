// Package pty owns the pseudo-terminal lifecycle for the daemon.
//
// A Handle pairs one PTY master descriptor with the shell process attached to
// its slave side. Handles come into existence two ways:
//   - Spawn: allocate a fresh PTY pair and start a child on it
//   - RestoreFromRaw: adopt a bare (fd, pid) pair inherited across a re-exec
//
// Child exit is never detected inside a signal handler. SIGCHLD delivery is
// converted into ordinary channel traffic by the Go runtime (signal.Notify)
// and fanned out to one buffered notification channel per handle; exit status
// is then collected with a non-blocking wait from the owner loop.
//
// Handles are owned by the single state-owning goroutine. Only Read may be
// called from another goroutine (the per-session output reader).
package pty
