package session

import (
	"time"

	"github.com/ptyhost/ptyhost/internal/persist"
	"github.com/ptyhost/ptyhost/internal/pty"
)

// Session is one logical terminal: an opaque id, the PTY handle backing it,
// and the display metadata IPC callers can mutate.
type Session struct {
	ID     string
	Handle *pty.Handle

	// Title is the natural title (from shell escape sequences, reported by
	// the content layer). CustomTitle overrides it when set via IPC.
	Title       string
	CustomTitle string

	// Description is set via the in-app dialog; CLIDescription via the
	// control socket. They are independent fields, as in the UI.
	Description    string
	CLIDescription string

	// Icon is an optional glyph shown next to the title.
	Icon string

	// Group names the session group this terminal belongs to.
	Group string

	// Notified marks a pending notification; cleared by the UI layer when
	// the terminal gains focus. Deliberately not persisted.
	Notified bool

	// Cwd tracks the child's working directory (from OSC 7).
	Cwd string

	// Output buffers PTY output between owner-loop ticks for the content
	// layer to drain.
	Output *Buffer

	StartedAt time.Time
}

// DisplayTitle returns the custom title when set, the natural title
// otherwise.
func (s *Session) DisplayTitle() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	return s.Title
}

// ToPersisted converts the session to its serializable form. The notified
// flag and buffered output are intentionally excluded.
func (s *Session) ToPersisted() persist.Session {
	return persist.Session{
		ID:             s.ID,
		PtyFd:          s.Handle.Fd(),
		Pid:            s.Handle.Pid(),
		Title:          s.Title,
		CustomTitle:    s.CustomTitle,
		Description:    s.Description,
		CLIDescription: s.CLIDescription,
		Icon:           s.Icon,
		Group:          s.Group,
		Cwd:            s.Cwd,
	}
}

// FromPersisted rebuilds a session around an already-restored handle.
func FromPersisted(ps persist.Session, h *pty.Handle) *Session {
	return &Session{
		ID:             ps.ID,
		Handle:         h,
		Title:          ps.Title,
		CustomTitle:    ps.CustomTitle,
		Description:    ps.Description,
		CLIDescription: ps.CLIDescription,
		Icon:           ps.Icon,
		Group:          ps.Group,
		Cwd:            ps.Cwd,
		Output:         NewBuffer(DefaultBufferSize),
		StartedAt:      time.Now(),
	}
}
