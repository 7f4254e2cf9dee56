package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ptyhost/ptyhost/internal/config"
	"github.com/ptyhost/ptyhost/internal/ipc"
	"github.com/ptyhost/ptyhost/internal/logging"
	"github.com/ptyhost/ptyhost/internal/pty"
	"github.com/ptyhost/ptyhost/internal/restart"
	"github.com/ptyhost/ptyhost/internal/session"
	"github.com/ptyhost/ptyhost/internal/shared/id"
)

// tickInterval is how often the owner loop runs when nothing wakes it early.
const tickInterval = 50 * time.Millisecond

// defaultSize is the window size for freshly spawned sessions until the UI
// layer issues a real resize.
var defaultSize = pty.WindowSize{Rows: 24, Cols: 80, CellWidth: 8, CellHeight: 16}

// App wires the session store, control socket, and restart coordinator
// together under one owner goroutine.
type App struct {
	cfg   *config.Config
	log   *logging.Logger
	store *session.Store
	srv   *ipc.Server
	coord *restart.Coordinator

	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
}

// New binds the control socket and prepares the owner loop around store,
// which may be freshly created or rebuilt from a restart snapshot.
func New(cfg *config.Config, log *logging.Logger, store *session.Store) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   log,
		store: store,
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}

	srv, err := ipc.Listen(cfg.Socket.Path, a.Wake, log.Named("ipc"))
	if err != nil {
		return nil, err
	}
	a.srv = srv
	a.coord = restart.New(cfg.State.Path, cfg.Socket.Path, cfg.Redraw.Delay, log.Named("restart"))

	return a, nil
}

// Wake nudges an otherwise-idle owner loop. Called by IPC workers right
// after enqueueing a request.
func (a *App) Wake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Stop asks the owner loop to exit after its current tick.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
		a.Wake()
	})
}

// RedrawAll forces every session to repaint. Called once after a resume so
// restored shells, which never noticed the exec, paint into the new image.
func (a *App) RedrawAll() {
	a.coord.RedrawAll(a.store)
}

// Run is the owner loop. It guarantees at least one session exists at entry,
// then alternates between draining child-exit notifications and queued IPC
// requests until stopped or until the last session closes.
func (a *App) Run() error {
	// Restored sessions have no reader yet; spawned ones get theirs in
	// spawnSession.
	a.store.ForEach(a.startReader)

	if a.store.Len() == 0 {
		if _, err := a.spawnSession(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.quit:
			return nil
		case <-a.wake:
		case <-ticker.C:
		}

		a.reapExited()
		if a.store.Len() == 0 {
			a.log.Info("last session closed, shutting down")
			return nil
		}

		for _, p := range a.srv.Poll() {
			if err := a.dispatch(p); err != nil {
				return err
			}
		}
	}
}

// Close releases the socket and tears down every session, reaping children
// so no zombies outlive the daemon. Not used on the restart path, where
// handles are detached instead.
func (a *App) Close() error {
	err := a.srv.Close()
	a.store.ForEach(func(s *session.Session) {
		if cerr := s.Handle.Close(); cerr != nil {
			a.log.Warn("session teardown failed",
				zap.String("session", s.ID),
				zap.Error(cerr))
		}
	})
	return err
}

// dispatch applies one IPC request to the store. The returned error is
// non-nil only for a failed restart exec, which poisons the process
// (descriptor flags were already mutated) and must end the run loop.
func (a *App) dispatch(p *ipc.PendingRequest) error {
	req := p.Request
	switch req.Cmd {
	case ipc.CmdPing:
		p.Respond(ipc.OK())

	case ipc.CmdRestart:
		a.log.Info("restart requested over control socket")
		err := a.coord.TriggerRestart(a.store)
		// Only reachable when the exec failed.
		p.Respond(ipc.Errorf("restart failed: %v", err))
		return err

	case ipc.CmdRename:
		respond(p, a.store.Rename(req.ID, req.Title))
	case ipc.CmdSetDescription:
		respond(p, a.store.SetDescription(req.ID, req.Text))
	case ipc.CmdSetIcon:
		respond(p, a.store.SetIcon(req.ID, req.Icon))
	case ipc.CmdNotify:
		respond(p, a.store.Notify(req.ID))
	case ipc.CmdMoveToGroup:
		respond(p, a.store.MoveToGroup(req.ID, req.Group))

	default:
		p.Respond(ipc.Errorf("unknown command: %q", req.Cmd))
	}
	return nil
}

func respond(p *ipc.PendingRequest, err error) {
	if err != nil {
		p.Respond(ipc.Errorf("%v", err))
		return
	}
	p.Respond(ipc.OK())
}

// reapExited collects exit events from every handle and drops finished
// sessions from the store.
func (a *App) reapExited() {
	var exited []*session.Session
	a.store.ForEach(func(s *session.Session) {
		ev := s.Handle.PollChildEvent()
		if ev == nil {
			return
		}
		if ev.Code != nil {
			a.log.Info("session exited",
				zap.String("session", s.ID),
				zap.Int("pid", s.Handle.Pid()),
				zap.Int("code", *ev.Code))
		} else {
			a.log.Info("session killed by signal",
				zap.String("session", s.ID),
				zap.Int("pid", s.Handle.Pid()))
		}
		exited = append(exited, s)
	})

	for _, s := range exited {
		if err := s.Handle.Close(); err != nil {
			a.log.Warn("closing exited session failed",
				zap.String("session", s.ID),
				zap.Error(err))
		}
		a.store.Remove(s.ID)
	}
}

// spawnSession starts a fresh shell on a new PTY and registers it.
func (a *App) spawnSession() (*session.Session, error) {
	shell := a.cfg.Shell.Program
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/bash"
	}

	dir := os.Getenv("HOME")
	if dir == "" {
		dir = "/tmp"
	}

	sid := id.NewSessionID().String()

	// Shells get enough environment to self-identify when issuing control
	// requests from inside the session.
	env := append(os.Environ(),
		"TERM="+a.cfg.Shell.Term,
		"PTYHOST_SESSION="+sid,
		"PTYHOST_SOCKET="+a.cfg.Socket.Path,
	)

	h, err := pty.Spawn(pty.SpawnConfig{
		Program: shell,
		Env:     env,
		Dir:     dir,
		Size:    defaultSize,
	})
	if err != nil {
		return nil, err
	}

	s := &session.Session{
		ID:        sid,
		Handle:    h,
		Title:     fmt.Sprintf("Terminal %d", a.store.NextOrdinal()),
		Cwd:       dir,
		Output:    session.NewBuffer(session.DefaultBufferSize),
		StartedAt: time.Now(),
	}
	a.store.Add(s)
	a.startReader(s)

	a.log.Info("session created",
		zap.String("session", sid),
		zap.String("shell", shell),
		zap.Int("pid", h.Pid()))
	return s, nil
}

// startReader pumps PTY output into the session's buffer until the master
// reports an error, which happens when the child side closes.
func (a *App) startReader(s *session.Session) {
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := s.Handle.Read(buf)
			if n > 0 {
				s.Output.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
}

// Resize applies a new window size to one session. A resize failure against
// a live descriptor indicates a corrupted PTY and is fatal to the process.
func (a *App) Resize(sid string, size pty.WindowSize) {
	s, ok := a.store.Get(sid)
	if !ok {
		return
	}
	if err := s.Handle.Resize(size); err != nil {
		if s.Handle.Exited() {
			a.log.Debug("resize after exit ignored", zap.String("session", sid))
			return
		}
		a.log.Fatal("resize failed on live PTY",
			zap.String("session", sid),
			zap.Error(err))
	}
}

// DrainOutput hands the session's buffered output to the content layer.
func (a *App) DrainOutput(sid string) []byte {
	s, ok := a.store.Get(sid)
	if !ok {
		return nil
	}
	return s.Output.ReadAll()
}

// SnapshotPath returns where the restart snapshot is written; exposed for
// diagnostics.
func (a *App) SnapshotPath() string { return a.cfg.State.Path }
