package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	creack "github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func sampleState() *State {
	return &State{
		Version: StateVersion,
		Sessions: []Session{
			{
				ID:          "term_01ARZ3NDEKTSV4RRFFQ69G5FAV",
				PtyFd:       7,
				Pid:         4242,
				Title:       "Terminal 1",
				CustomTitle: "build",
				Description: "long running build",
				Icon:        "",
				Group:       "work",
				Cwd:         "/home/user/src",
			},
			{
				ID:    "term_01BX5ZZKBKACTAV9WEVGEMMVS0",
				PtyFd: 9,
				Pid:   4243,
			},
		},
		Groups:      []string{"default", "work"},
		NextOrdinal: 3,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	want := sampleState()
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	state := sampleState()
	state.Version = StateVersion + 1
	require.NoError(t, state.Save(path))

	_, err := Load(path)
	require.Error(t, err)

	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, StateVersion, mismatch.Expected)
	assert.Equal(t, StateVersion+1, mismatch.Found)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestClearCloexec(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_CLOEXEC))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, ClearCloexec(fds[0]))

	flags, err := unix.FcntlInt(uintptr(fds[0]), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.Zero(t, flags&unix.FD_CLOEXEC)
}

func TestValidateFd(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_CLOEXEC))
	defer unix.Close(fds[1])

	assert.NoError(t, ValidateFd(fds[0]))

	require.NoError(t, unix.Close(fds[0]))
	err := ValidateFd(fds[0])
	require.Error(t, err)

	var invalid *InvalidFdError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, fds[0], invalid.Fd)
}

func TestValidateProcess(t *testing.T) {
	assert.NoError(t, ValidateProcess(os.Getpid()))

	// Pid beyond any plausible pid_max.
	err := ValidateProcess(1 << 27)
	require.Error(t, err)

	var notRunning *ProcessNotRunningError
	assert.ErrorAs(t, err, &notRunning)
}

func TestForceRedrawRestoresSize(t *testing.T) {
	master, slave, err := creack.Open()
	if err != nil {
		t.Skip("no PTY device available")
	}
	defer master.Close()
	defer slave.Close()

	fd := int(master.Fd())
	require.NoError(t, SetWindowSize(fd, 120, 40))

	// Redraw against our own pid; only the SIGWINCH target matters and we
	// ignore that signal by default.
	require.NoError(t, ForceRedraw(fd, os.Getpid(), time.Millisecond))

	cols, rows, err := WindowSize(fd)
	require.NoError(t, err)
	assert.Equal(t, uint16(120), cols)
	assert.Equal(t, uint16(40), rows)
}
