// Package runner launches the external toolchain as a child process and
// exposes its completion as a channel so callers can race it against timers
// and cancellation requests.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultWaitDelay bounds how long Wait keeps copying output after the
// process is gone, so grandchildren holding the pipes open cannot stall a job.
const DefaultWaitDelay = 2 * time.Second

const truncatedSuffix = "... (truncated)"

type Spec struct {
	Command []string
	Dir     string
	Env     []string
	Stdin   io.Reader

	// MaxOutputBytes caps stdout and stderr separately. Zero means unlimited.
	MaxOutputBytes int
	WaitDelay      time.Duration
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Signaled is true when the process did not exit on its own.
	Signaled bool
	// Err holds a wait failure that is not a plain non-zero exit.
	Err error
}

type Process struct {
	cmd    *exec.Cmd
	stdout *cappedBuffer
	stderr *cappedBuffer

	done     chan struct{}
	result   Result
	killOnce sync.Once
	killErr  error
}

// Start launches the command described by spec. A non-nil error means the
// process never started and nothing needs releasing.
func Start(spec Spec) (*Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = spec.Stdin
	cmd.WaitDelay = spec.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	setProcessGroup(cmd)

	p := &Process{
		cmd:    cmd,
		stdout: &cappedBuffer{limit: spec.MaxOutputBytes},
		stderr: &cappedBuffer{limit: spec.MaxOutputBytes},
		done:   make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Command[0], err)
	}

	go p.wait()

	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()

	res := Result{
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Signaled = res.ExitCode == -1
	default:
		res.ExitCode = -1
		res.Err = err
	}
	if ps := p.cmd.ProcessState; ps != nil && !ps.Exited() {
		res.Signaled = true
	}

	p.result = res
	close(p.done)
}

// Done is closed once the process has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Result is only meaningful after Done is closed.
func (p *Process) Result() Result {
	<-p.done
	return p.result
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Kill force-kills the process and its group. Repeated calls, and calls after
// the process already exited, are no-ops.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	p.killOnce.Do(func() {
		err := killProcessGroup(p.cmd)
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.killErr = err
		}
	})
	return p.killErr
}

// cappedBuffer is safe for the concurrent writes exec performs when Stdout and
// Stderr are distinct writers and the reads that follow Wait.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(data)
	if b.limit > 0 {
		room := b.limit - b.buf.Len()
		if room <= 0 {
			b.truncated = true
			return n, nil
		}
		if len(data) > room {
			data = data[:room]
			b.truncated = true
		}
	}
	b.buf.Write(data)
	return n, nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return b.buf.String() + truncatedSuffix
	}
	return b.buf.String()
}
