package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/timvw/pshell/conn"
	"github.com/timvw/pshell/session"
)

// BashAdapter implements ShellAdapter over a pshell session running bash
type BashAdapter struct {
	shell    string
	connOpts []conn.Option
	session  *session.Session
	mu       sync.Mutex
}

// NewBashAdapter creates a new bash adapter. Extra connection options are
// applied after the adapter's own.
func NewBashAdapter(opts ...conn.Option) *BashAdapter {
	return &BashAdapter{shell: conn.DefaultShell, connOpts: opts}
}

// Name returns the shell name
func (a *BashAdapter) Name() string {
	return filepath.Base(a.shell)
}

// Setup starts bash in the fixture root
func (a *BashAdapter) Setup(f *Fixture) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	opts := append([]conn.Option{
		conn.WithStartupDelay(50 * time.Millisecond),
		conn.WithPollInterval(10 * time.Millisecond),
	}, a.connOpts...)
	c, err := conn.New([]string{a.shell}, conn.BashTerminator{Shell: a.shell}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	s := session.New(c, session.WithAutoReturnCodeError(false))
	if err := s.Enter(session.Config{Dir: f.Root, Env: f.Env}); err != nil {
		return fmt.Errorf("failed to start %s: %w", a.shell, err)
	}
	a.session = s
	return nil
}

// Session exposes the underlying session for steps the adapter does not cover
func (a *BashAdapter) Session() *session.Session {
	return a.session
}

// Execute runs a command and records its output, status and resulting pwd
func (a *BashAdapter) Execute(cmd string, args []string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil, errors.New("adapter not set up")
	}

	out, err := a.session.Send(commandLine(cmd, args))
	if errors.Is(err, conn.ErrTimeout) {
		return &Result{TimedOut: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run command: %w", err)
	}

	result := &Result{
		Stdout:   out,
		Stderr:   a.session.LastStderr(),
		ExitCode: a.session.LastReturnCode(),
	}

	pwd, err := a.pwd()
	if err != nil {
		return nil, err
	}
	result.Pwd = pwd
	return result, nil
}

// SendNowait writes a command without reading its output
func (a *BashAdapter) SendNowait(cmd string, args []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return errors.New("adapter not set up")
	}
	return a.session.SendNowait(commandLine(cmd, args))
}

// WaitFor waits for pattern in the shell's output
func (a *BashAdapter) WaitFor(pattern string, timeout time.Duration) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil, errors.New("adapter not set up")
	}

	var opts []conn.CallOption
	if timeout > 0 {
		opts = append(opts, conn.Within(timeout))
	}
	out, err := a.session.WaitFor(pattern, opts...)
	if errors.Is(err, conn.ErrTimeout) {
		return &Result{TimedOut: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %q: %w", pattern, err)
	}
	return &Result{Stdout: out}, nil
}

// GetPwd returns the current working directory
func (a *BashAdapter) GetPwd() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return "", errors.New("adapter not set up")
	}
	return a.pwd()
}

func (a *BashAdapter) pwd() (string, error) {
	out, err := a.session.Conn().Send("pwd", conn.Forget())
	if err != nil {
		return "", fmt.Errorf("failed to read pwd: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Cleanup terminates the bash shell
func (a *BashAdapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	var errs []error
	for a.session.Depth() >= 0 {
		if err := a.session.Exit(); err != nil {
			errs = append(errs, err)
		}
	}
	a.session = nil
	return errors.Join(errs...)
}

// commandLine joins cmd and args verbatim so steps may use shell syntax
func commandLine(cmd string, args []string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + " " + strings.Join(args, " ")
}
