//go:build !windows

package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	p, err := Start(Spec{Command: []string{"sh", "-c", "echo out; echo err >&2; exit 3"}})
	require.NoError(t, err)

	res := p.Result()
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Signaled)
	assert.NoError(t, res.Err)
}

func TestStart_MissingExecutable(t *testing.T) {
	t.Parallel()

	_, err := Start(Spec{Command: []string{"/definitely/not/a/toolchain"}})
	require.Error(t, err)
}

func TestStart_EmptyCommand(t *testing.T) {
	t.Parallel()

	_, err := Start(Spec{})
	require.Error(t, err)
}

func TestStart_UsesDirAndEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p, err := Start(Spec{
		Command: []string{"sh", "-c", `pwd; echo "$COMPILER_INPUT"`},
		Dir:     dir,
		Env:     []string{"COMPILER_INPUT=input.c"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(p.Result().Stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], dir[strings.LastIndex(dir, "/"):]))
	assert.Equal(t, "input.c", lines[1])
}

func TestKill_IsIdempotent(t *testing.T) {
	t.Parallel()

	p, err := Start(Spec{Command: []string{"sh", "-c", "sleep 30"}})
	require.NoError(t, err)

	require.NoError(t, p.Kill())
	require.NoError(t, p.Kill())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process was not reaped after kill")
	}

	res := p.Result()
	assert.True(t, res.Signaled)
	assert.NoError(t, p.Kill(), "kill after exit must be a no-op")
}

func TestKill_ReachesChildProcesses(t *testing.T) {
	t.Parallel()

	// The child keeps stdout open; without a group kill Wait would block on it.
	p, err := Start(Spec{Command: []string{"sh", "-c", "sleep 30 & wait"}})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Kill())
	<-p.Done()
	assert.Less(t, time.Since(start), DefaultWaitDelay+time.Second)
}

func TestCappedBuffer_Truncates(t *testing.T) {
	t.Parallel()

	p, err := Start(Spec{
		Command:        []string{"sh", "-c", "printf 'abcdefghij'"},
		MaxOutputBytes: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, "abcd"+truncatedSuffix, p.Result().Stdout)
}
