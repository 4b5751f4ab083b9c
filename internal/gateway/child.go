package gateway

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// child owns a spawned subprocess and its three pipes. stdout and stderr
// are kept non-blocking so the reactor can read them directly once poll
// reports readiness; stdin's write end is non-blocking too, matching the
// gateway's best-effort write policy.
type child struct {
	cmd *exec.Cmd

	stdout   *os.File
	stderr   *os.File
	stdin    *os.File
	stdoutFD int
	stderrFD int
	stdinFD  int

	mu        sync.Mutex
	exitCode  int
	exitKnown bool
	waited    chan struct{}
}

// spawnChild starts name with args, piping all three standard streams.
// Stdout/stderr/stdin are wired through manually created pipes (rather than
// cmd.StdoutPipe(), which hands ownership of reaping to Cmd.Wait) so the
// reactor keeps exclusive control of when reads happen.
func spawnChild(name string, args []string) (*child, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, err
	}
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.Stdin = stdinR
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		stdinR.Close()
		stdinW.Close()
		return nil, err
	}

	// The child now holds its own copies of the write/read ends it needs;
	// the parent only needs the opposite ends.
	stdoutW.Close()
	stderrW.Close()
	stdinR.Close()

	outFD, err := rawFileFD(stdoutR)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	errFD, err := rawFileFD(stderrR)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	inFD, err := rawFileFD(stdinW)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	c := &child{
		cmd:      cmd,
		stdout:   stdoutR,
		stderr:   stderrR,
		stdin:    stdinW,
		stdoutFD: outFD,
		stderrFD: errFD,
		stdinFD:  inFD,
		waited:   make(chan struct{}),
	}
	go c.reap()
	return c, nil
}

// reap blocks in a dedicated goroutine until the child exits, recording its
// exit code. This turns the one genuinely blocking operation in the child's
// lifecycle into something the single-threaded reactor can poll for
// non-blockingly via TryExitCode.
func (c *child) reap() {
	err := c.cmd.Wait()

	c.mu.Lock()
	switch e := err.(type) {
	case *exec.ExitError:
		c.exitCode = e.ExitCode()
	case nil:
		c.exitCode = c.cmd.ProcessState.ExitCode()
	}
	c.exitKnown = true
	c.mu.Unlock()

	close(c.waited)
}

// TryExitCode reports the child's exit code without blocking. ok is false
// if the child hasn't been reaped yet; the caller sends an exit
// notification with no code in that case, same as a non-blocking try-wait
// that hasn't resolved.
func (c *child) TryExitCode() (code int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode, c.exitKnown
}

// signal sends sig to the child's whole process group when possible, so a
// child that itself forked children is torn down too.
func (c *child) signal(sig syscall.Signal) {
	if c.cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(c.cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, sig)
	} else {
		_ = c.cmd.Process.Signal(sig)
	}
}

// requestKill is the CLIENT_KILL control message. It sends SIGKILL, matching
// Child::kill() in the source implementation: a guaranteed, non-ignorable
// termination rather than a request the child can catch or ignore. The
// session keeps running until the child's pipes actually report EOF.
func (c *child) requestKill() {
	c.signal(syscall.SIGKILL)
}

// push writes payload to the child's stdin, best-effort and non-blocking.
// A full pipe or a child not reading simply drops bytes, consistent with
// this gateway's write policy everywhere else.
func (c *child) push(payload []byte) {
	_, _ = unix.Write(c.stdinFD, payload)
}

// close kills the child's process group and waits for it to be reaped,
// then releases its pipes. Called once when the owning session is torn
// down, so no child is ever left behind as a zombie.
func (c *child) close() {
	c.signal(syscall.SIGKILL)
	<-c.waited
	_ = c.stdout.Close()
	_ = c.stderr.Close()
	_ = c.stdin.Close()
}

func (c *child) String() string {
	if c.cmd.Process == nil {
		return fmt.Sprintf("child(%s, not started)", c.cmd.Path)
	}
	return fmt.Sprintf("child(%s, pid=%d)", c.cmd.Path, c.cmd.Process.Pid)
}
