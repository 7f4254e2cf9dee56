// Package restart orchestrates the exec-based restart: snapshot every live
// session, keep its descriptors across the exec, and rebuild the session set
// in the new process image.
package restart

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ptyhost/ptyhost/internal/logging"
	"github.com/ptyhost/ptyhost/internal/persist"
	"github.com/ptyhost/ptyhost/internal/pty"
	"github.com/ptyhost/ptyhost/internal/session"
)

// Coordinator drives the snapshot → exec → resume → validate → redraw
// sequence.
type Coordinator struct {
	statePath   string
	socketPath  string
	redrawDelay time.Duration
	log         *logging.Logger
}

// New creates a coordinator writing its snapshot to statePath and telling the
// next image to reuse socketPath.
func New(statePath, socketPath string, redrawDelay time.Duration, log *logging.Logger) *Coordinator {
	return &Coordinator{
		statePath:   statePath,
		socketPath:  socketPath,
		redrawDelay: redrawDelay,
		log:         log,
	}
}

// TriggerRestart snapshots the store, arranges for every PTY master to
// survive the exec, and replaces the process image. On success it never
// returns. If it does return, the exec failed; descriptors have already been
// detached and had close-on-exec cleared, so the caller must shut down rather
// than carry on.
func (c *Coordinator) TriggerRestart(store *session.Store) error {
	state := store.Snapshot()
	if err := state.Save(c.statePath); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	store.ForEach(func(s *session.Session) {
		if err := persist.ClearCloexec(s.Handle.Fd()); err != nil {
			c.log.Warn("failed to clear close-on-exec",
				zap.String("session", s.ID),
				zap.Int("fd", s.Handle.Fd()),
				zap.Error(err))
		}
	})

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve current executable: %w", err)
	}

	// Detach every handle: the children must outlive this process image,
	// so teardown on this side becomes a no-op.
	store.ForEach(func(s *session.Session) {
		s.Handle.IntoRawParts()
	})

	args := []string{
		exe, "resume",
		"--state-file", c.statePath,
		"--socket", c.socketPath,
	}

	c.log.Info("replacing process image",
		zap.String("exe", exe),
		zap.Int("sessions", store.Len()))

	err = unix.Exec(exe, args, os.Environ())
	// Exec only returns on failure.
	return fmt.Errorf("exec failed: %w", err)
}

// Resume rebuilds a session store from the snapshot at the coordinator's
// state path. A missing, corrupt, or version-drifted snapshot is returned as
// an error so the caller can fall back to a fresh start. Individual sessions
// that fail validation are dropped and logged, never fatal.
func (c *Coordinator) Resume() (*session.Store, error) {
	state, err := persist.Load(c.statePath)
	if err != nil {
		return nil, err
	}

	store := session.NewStore()
	store.RestoreMeta(state)

	for _, ps := range state.Sessions {
		if err := persist.ValidateFd(ps.PtyFd); err != nil {
			c.log.Warn("dropping session: descriptor did not survive",
				zap.String("session", ps.ID),
				zap.Error(err))
			continue
		}
		if err := persist.ValidateProcess(ps.Pid); err != nil {
			c.log.Warn("dropping session: child no longer running",
				zap.String("session", ps.ID),
				zap.Error(err))
			continue
		}

		h := pty.RestoreFromRaw(ps.PtyFd, ps.Pid)
		store.Add(session.FromPersisted(ps, h))
		c.log.Info("restored session",
			zap.String("session", ps.ID),
			zap.Int("fd", ps.PtyFd),
			zap.Int("pid", ps.Pid))
	}

	return store, nil
}

// RedrawAll forces every surviving session to repaint. Shells that resumed
// across the exec have no idea anything happened, and a resize to the same
// size would be ignored, so each gets the size toggle.
func (c *Coordinator) RedrawAll(store *session.Store) {
	store.ForEach(func(s *session.Session) {
		if err := persist.ForceRedraw(s.Handle.Fd(), s.Handle.Pid(), c.redrawDelay); err != nil {
			c.log.Warn("force redraw failed",
				zap.String("session", s.ID),
				zap.Error(err))
		}
	})
}
