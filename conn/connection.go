package conn

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/encoding"
)

// Connection drives one local child process over its standard streams.
// It is not safe for concurrent use.
type Connection struct {
	command []string
	term    Terminator
	opts    options
	enc     encoding.Encoding
	logger  *slog.Logger

	cmd    *exec.Cmd
	stdin  *os.File
	stdout *streamReader
	stderr *streamReader

	finished bool
	broken   error

	left         leftovers
	stale        Predicate
	output       *History
	debugOutput  *History
	stderrOutput *History
	lastStderr   string
}

// New returns a Connection that will run command and frame each Send with
// term. The process is not spawned until Start.
func New(command []string, term Terminator, opts ...Option) (*Connection, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("command must not be empty")
	}
	if term == nil {
		return nil, errors.New("terminator must not be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.pollInterval < minPollInterval {
		o.pollInterval = minPollInterval
	}
	if o.readSize <= 0 {
		o.readSize = defaultReadSize
	}
	if o.exitCommand == "" {
		o.exitCommand = defaultExitCommand
	}
	if o.sendTimeout <= 0 {
		o.sendTimeout = defaultSendTimeout
	}
	if o.waitTimeout <= 0 {
		o.waitTimeout = defaultWaitTimeout
	}

	enc, err := LookupEncoding(o.encoding)
	if err != nil {
		return nil, err
	}

	return &Connection{
		command:      append([]string(nil), command...),
		term:         term,
		opts:         o,
		enc:          enc,
		logger:       o.logger.With("component", "conn"),
		output:       newHistory(),
		debugOutput:  newHistory(),
		stderrOutput: newHistory(),
	}, nil
}

// LocalBash returns a Connection to DefaultShell using BashTerminator.
func LocalBash(opts ...Option) (*Connection, error) {
	return New([]string{DefaultShell}, BashTerminator{Shell: DefaultShell}, opts...)
}

// Start spawns the child, waits for its startup banner and discards it.
func (c *Connection) Start() error {
	if c.finished {
		return ErrFinished
	}
	if c.cmd != nil {
		return ErrAlreadyRunning
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return &IOError{Op: "start", Stream: "stdout", Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeFiles(outR, outW)
		return &IOError{Op: "start", Stream: "stderr", Err: err}
	}
	var inParent, inChild *os.File
	if c.opts.terminalInput {
		inParent, inChild, err = openTerminalInput()
	} else {
		inChild, inParent, err = os.Pipe()
	}
	if err != nil {
		closeFiles(outR, outW, errR, errW)
		return &IOError{Op: "start", Stream: "stdin", Err: err}
	}

	cmd := exec.Command(c.command[0], c.command[1:]...)
	cmd.Dir = c.opts.dir
	if len(c.opts.env) > 0 {
		cmd.Env = c.opts.env
	}
	cmd.Stdin = inChild
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		closeFiles(outR, outW, errR, errW, inParent, inChild)
		return &IOError{Op: "start", Err: err}
	}
	// The child holds its own copies now.
	closeFiles(outW, errW, inChild)

	stdout, err := newStreamReader("stdout", outR, c.enc, c.opts.readSize, c.logger)
	if err != nil {
		c.abort(cmd, outR, errR, inParent)
		return err
	}
	stderr, err := newStreamReader("stderr", errR, c.enc, c.opts.readSize, c.logger)
	if err != nil {
		c.abort(cmd, outR, errR, inParent)
		return err
	}

	c.cmd = cmd
	c.stdin = inParent
	c.stdout = stdout
	c.stderr = stderr
	c.left = leftovers{}
	c.logger.Info("started", "command", strings.Join(c.command, " "), "pid", cmd.Process.Pid)

	if c.opts.startupDelay > 0 {
		time.Sleep(c.opts.startupDelay)
	}
	return c.Drain()
}

func (c *Connection) abort(cmd *exec.Cmd, files ...*os.File) {
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	closeFiles(files...)
}

// Finish writes the exit command, asks the child to terminate and reaps it.
// A child still alive after the shutdown timeout is killed. Finish on a
// finished Connection is a no-op.
func (c *Connection) Finish() error {
	if c.cmd == nil {
		if c.finished {
			return nil
		}
		return ErrNotRunning
	}

	pid := c.cmd.Process.Pid
	c.logger.Info("finishing", "pid", pid)
	if c.broken == nil {
		if err := c.writeRaw(c.opts.exitCommand + "\n"); err != nil {
			// Already gone; termination below still reaps it.
			c.logger.Debug("exit command not delivered", "pid", pid, "error", err)
		}
	}
	_ = c.stdin.Close()

	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		c.logger.Debug("terminate failed", "pid", pid, "error", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.cmd.Wait()
	}()

	select {
	case err := <-done:
		c.logger.Info("exited", "pid", pid, "status", exitStatus(err))
	case <-time.After(c.opts.shutdownTimeout):
		c.logger.Warn("shutdown timeout exceeded, killing", "pid", pid)
		_ = c.cmd.Process.Kill()
		<-done
	}

	var errs []error
	if err := c.stdout.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.stderr.Close(); err != nil {
		errs = append(errs, err)
	}

	c.cmd = nil
	c.stdin = nil
	c.stdout = nil
	c.stderr = nil
	c.finished = true
	if len(errs) > 0 {
		return fmt.Errorf("finish: %w", errors.Join(errs...))
	}
	return nil
}

// Running reports whether a child was started and not yet finished.
func (c *Connection) Running() bool {
	return c.cmd != nil && !c.finished
}

// Send writes text followed by the terminator's marker and returns the
// command's stdout with the marker stripped. Stderr produced by the command
// is available from LastStderr. Output of an earlier Send that timed out is
// discarded up to and including that Send's marker. The timeout (10s unless WithSendTimeout says
// otherwise) restarts whenever output arrives unless AbsoluteTimeout is given.
func (c *Connection) Send(text string, opts ...CallOption) (string, error) {
	co := resolveCallOptions(c.opts.sendTimeout, opts)
	if err := c.usable(); err != nil {
		return "", err
	}

	c.left = leftovers{}
	frame := c.term.Prepare(text)
	if err := c.write(frame.Input); err != nil {
		return "", err
	}

	res, err := c.read(readRequest{
		op:      "send",
		target:  text,
		done:    frame.Done,
		timeout: co.timeout,
		soft:    !co.absolute,
		skip:    c.stale,
	})
	if errors.Is(err, ErrTimeout) {
		// The marker is still on its way; the next Send skips past it.
		c.stale = frame.Done
	}
	if err != nil {
		return "", err
	}

	out := res.out
	if frame.Extract != nil {
		out = frame.Extract(out)
	}
	stderr := strings.TrimRight(res.err, "\n")

	if !co.forget {
		c.output.Set(text, out)
	}
	c.debugOutput.Set(text, out)
	c.stderrOutput.Set(text, stderr)
	c.lastStderr = stderr
	return out, nil
}

// SendNowait writes text and a newline without reading anything back.
// Use WaitFor to consume the output.
func (c *Connection) SendNowait(text string) error {
	return c.write(text + "\n")
}

// SendRaw writes text and a newline bypassing the terminator, for driving the
// child directly, e.g. to start a nested shell.
func (c *Connection) SendRaw(text string) error {
	if err := c.usable(); err != nil {
		return err
	}
	c.logger.Info("write raw", "text", text)
	return c.writeRaw(text + "\n")
}

// Drain discards everything currently readable on both streams, including
// text held back from a previous wait.
func (c *Connection) Drain() error {
	if err := c.usable(); err != nil {
		return err
	}
	c.left = leftovers{}
	var drained string
	for {
		out, err := c.stdout.TryRead()
		if err != nil {
			return c.fail(err)
		}
		errText, err := c.stderr.TryRead()
		if err != nil {
			return c.fail(err)
		}
		if out == "" && errText == "" {
			c.passed(drained)
			return nil
		}
		drained += errText + out
		c.logger.Debug("drained", "stdout", out, "stderr", errText)
	}
}

// Last returns the output of the most recently remembered command.
func (c *Connection) Last() string {
	return c.output.Last()
}

// LastStderr returns the stderr of the most recent Send, trailing newlines
// removed.
func (c *Connection) LastStderr() string {
	return c.lastStderr
}

// Output holds remembered commands and their stdout.
func (c *Connection) Output() *History {
	return c.output
}

// DebugOutput holds every sent command and its stdout, remembered or not.
func (c *Connection) DebugOutput() *History {
	return c.debugOutput
}

// StderrOutput holds every sent command and its stderr.
func (c *Connection) StderrOutput() *History {
	return c.stderrOutput
}

func (c *Connection) write(text string) error {
	if err := c.usable(); err != nil {
		return err
	}
	c.logger.Info("write", "text", text)
	return c.writeRaw(text)
}

func (c *Connection) writeRaw(text string) error {
	encoded, err := c.enc.NewEncoder().String(text)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if _, err := io.WriteString(c.stdin, encoded); err != nil {
		return c.fail(&IOError{Op: "write", Stream: "stdin", Err: err})
	}
	return nil
}

// passed forgets a stale marker once text consumed outside Send contained it.
func (c *Connection) passed(text string) {
	if c.stale != nil && c.stale(text) {
		c.stale = nil
	}
}

func (c *Connection) usable() error {
	if c.broken != nil {
		return &brokenError{cause: c.broken}
	}
	if c.cmd == nil {
		if c.finished {
			return ErrFinished
		}
		return ErrNotRunning
	}
	return nil
}

// fail marks the Connection broken. Every later call reports cause.
func (c *Connection) fail(cause error) error {
	if c.broken == nil {
		c.broken = cause
		c.logger.Error("connection broken", "error", cause)
	}
	return cause
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
