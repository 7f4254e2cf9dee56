package session

import (
	"fmt"
	"slices"

	"github.com/ptyhost/ptyhost/internal/persist"
)

// DefaultGroup is the group sessions start in.
const DefaultGroup = "default"

// Store is the registry of live sessions. It is owned by the single
// state-owning goroutine and is not safe for concurrent use.
type Store struct {
	order       []string
	sessions    map[string]*Session
	groups      []string
	nextOrdinal uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		groups:      []string{DefaultGroup},
		nextOrdinal: 1,
	}
}

// NextOrdinal returns the next spawn ordinal and advances the counter. Used
// for default titles like "Terminal 3"; persisted so numbering survives
// restarts.
func (st *Store) NextOrdinal() uint64 {
	n := st.nextOrdinal
	st.nextOrdinal++
	return n
}

// Len returns the number of live sessions.
func (st *Store) Len() int { return len(st.sessions) }

// Add registers a session under its id.
func (st *Store) Add(s *Session) {
	if _, ok := st.sessions[s.ID]; ok {
		return
	}
	if s.Group == "" {
		s.Group = DefaultGroup
	}
	st.ensureGroup(s.Group)
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
}

// Get looks a session up by id.
func (st *Store) Get(id string) (*Session, bool) {
	s, ok := st.sessions[id]
	return s, ok
}

// Remove drops a session from the registry without touching its handle.
func (st *Store) Remove(id string) {
	if _, ok := st.sessions[id]; !ok {
		return
	}
	delete(st.sessions, id)
	if i := slices.Index(st.order, id); i >= 0 {
		st.order = slices.Delete(st.order, i, i+1)
	}
}

// ForEach visits every session in creation order.
func (st *Store) ForEach(fn func(*Session)) {
	for _, id := range st.order {
		fn(st.sessions[id])
	}
}

// Groups returns the known group names in creation order.
func (st *Store) Groups() []string {
	return slices.Clone(st.groups)
}

func (st *Store) ensureGroup(name string) {
	if !slices.Contains(st.groups, name) {
		st.groups = append(st.groups, name)
	}
}

// Rename sets the custom title on a session; the natural title is left for
// the shell to keep updating.
func (st *Store) Rename(id, title string) error {
	s, ok := st.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	s.CustomTitle = title
	return nil
}

// SetDescription sets the CLI-provided description on a session.
func (st *Store) SetDescription(id, text string) error {
	s, ok := st.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	s.CLIDescription = text
	return nil
}

// SetIcon sets the icon glyph on a session.
func (st *Store) SetIcon(id, icon string) error {
	s, ok := st.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	s.Icon = icon
	return nil
}

// Notify flags a session as having a pending notification.
func (st *Store) Notify(id string) error {
	s, ok := st.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	s.Notified = true
	return nil
}

// MoveToGroup moves a session to the named group, creating the group on
// demand.
func (st *Store) MoveToGroup(id, group string) error {
	s, ok := st.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	if group == "" {
		return fmt.Errorf("group name must not be empty")
	}
	st.ensureGroup(group)
	s.Group = group
	return nil
}

// Snapshot captures every live session into the serializable state written
// ahead of a restart.
func (st *Store) Snapshot() *persist.State {
	state := &persist.State{
		Version:     persist.StateVersion,
		Sessions:    make([]persist.Session, 0, len(st.order)),
		Groups:      slices.Clone(st.groups),
		NextOrdinal: st.nextOrdinal,
	}
	st.ForEach(func(s *Session) {
		state.Sessions = append(state.Sessions, s.ToPersisted())
	})
	return state
}

// RestoreMeta rebuilds the non-session bookkeeping from a snapshot.
func (st *Store) RestoreMeta(state *persist.State) {
	for _, g := range state.Groups {
		st.ensureGroup(g)
	}
	if state.NextOrdinal > st.nextOrdinal {
		st.nextOrdinal = state.NextOrdinal
	}
}
