package persist

import (
	"encoding/json"
	"fmt"
	"os"
)

// StateVersion guards against incompatible snapshot format changes.
// Increment whenever the serialized shape changes.
const StateVersion = 2

// VersionMismatchError reports a snapshot written by a different format
// version.
type VersionMismatchError struct {
	Expected int
	Found    int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("state version mismatch: expected %d, found %d", e.Expected, e.Found)
}

// InvalidFdError reports a persisted descriptor that is no longer open.
type InvalidFdError struct {
	Fd int
}

func (e *InvalidFdError) Error() string {
	return fmt.Sprintf("invalid file descriptor: %d", e.Fd)
}

// ProcessNotRunningError reports a persisted pid that no longer refers to a
// live process.
type ProcessNotRunningError struct {
	Pid int
}

func (e *ProcessNotRunningError) Error() string {
	return fmt.Sprintf("process not running: %d", e.Pid)
}

// Session is the serializable form of one terminal session, captured
// immediately before a restart. The descriptor and pid are raw OS values the
// next process image adopts as-is.
type Session struct {
	ID             string `json:"id"`
	PtyFd          int    `json:"pty_fd"`
	Pid            int    `json:"pid"`
	Title          string `json:"title,omitempty"`
	CustomTitle    string `json:"custom_title,omitempty"`
	Description    string `json:"description,omitempty"`
	CLIDescription string `json:"cli_description,omitempty"`
	Icon           string `json:"icon,omitempty"`
	Group          string `json:"group,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
}

// State is the full snapshot written to disk before a restart.
type State struct {
	Version     int       `json:"version"`
	Sessions    []Session `json:"sessions"`
	Groups      []string  `json:"groups,omitempty"`
	NextOrdinal uint64    `json:"next_ordinal"`
}

// Save writes the snapshot to path and syncs it to disk. The exec that
// follows replaces the process image, so the write must be durable first.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot. A version mismatch rejects the whole
// file; nothing is partially applied.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	if state.Version != StateVersion {
		return nil, &VersionMismatchError{Expected: StateVersion, Found: state.Version}
	}

	return &state, nil
}
