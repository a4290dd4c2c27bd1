// Package session layers shell semantics over a conn.Connection: a stack of
// nested shell contexts, each with its own directory, environment and
// sourced files, and exit status checking after every command.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/timvw/pshell/conn"
	"github.com/timvw/pshell/dialect"
)

// ErrNoFrame is returned by Exit when no context has been entered.
var ErrNoFrame = errors.New("no active session context")

// Conn is the connection a Session drives. *conn.Connection implements it.
type Conn interface {
	dialect.Sender
	Start() error
	Finish() error
	SendNowait(text string) error
	WaitFor(pattern string, opts ...conn.CallOption) (string, error)
	WaitUntil(done conn.Predicate, opts ...conn.CallOption) (string, error)
}

// Config is applied when a context is entered, in field order.
type Config struct {
	Dir    string
	Env    map[string]string
	Source []string
}

// Frame is one entered context. Depth 0 is the process itself; deeper frames
// are nested shells.
type Frame struct {
	Depth  int
	Config Config
}

// ExitError reports a command that finished with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stdout  string
	Stderr  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
}

// Session is not safe for concurrent use.
type Session struct {
	conn    Conn
	dialect dialect.Dialect
	logger  *slog.Logger
	stack   []Frame

	autoReturnCodeError bool
	lastReturnCode      int
	lastStderr          string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithDialect replaces the default bash dialect.
func WithDialect(d dialect.Dialect) Option {
	return func(s *Session) {
		s.dialect = d
	}
}

// WithAutoReturnCodeError controls whether a non-zero status is returned as
// an *ExitError. It is on by default.
func WithAutoReturnCodeError(on bool) Option {
	return func(s *Session) {
		s.autoReturnCodeError = on
	}
}

// New returns a Session over c. Nothing is started until Enter.
func New(c Conn, opts ...Option) *Session {
	s := &Session{
		conn:                c,
		autoReturnCodeError: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.dialect == nil {
		s.dialect = dialect.NewBash(c, "")
	}
	return s
}

// LocalBash returns a Session over a new local bash connection. Nothing is
// started until Enter.
func LocalBash(connOpts []conn.Option, opts ...Option) (*Session, error) {
	c, err := conn.LocalBash(connOpts...)
	if err != nil {
		return nil, err
	}
	return New(c, opts...), nil
}

// Enter pushes a context: the first starts the process, later ones start a
// nested shell. cfg is then applied. If applying fails the context is popped
// again.
func (s *Session) Enter(cfg Config) error {
	depth := len(s.stack)
	s.logger.Debug("entering context", "depth", depth, "dir", cfg.Dir)

	if depth == 0 {
		if err := s.conn.Start(); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	} else if err := s.dialect.StartSubshell(); err != nil {
		return err
	}
	s.stack = append(s.stack, Frame{Depth: depth, Config: cfg})

	if err := s.apply(cfg); err != nil {
		return errors.Join(err, s.Exit())
	}
	return nil
}

func (s *Session) apply(cfg Config) error {
	if cfg.Dir != "" {
		if err := s.dialect.Cd(cfg.Dir); err != nil {
			return fmt.Errorf("cd %s: %w", cfg.Dir, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Env)) {
		s.logger.Debug("setting variable", "name", name)
		if err := s.dialect.SetEnv(name, cfg.Env[name]); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	for _, f := range cfg.Source {
		if err := s.dialect.Source(f); err != nil {
			return fmt.Errorf("source %s: %w", f, err)
		}
	}
	return nil
}

// Exit pops the innermost context, leaving the nested shell or finishing the
// process at depth 0.
func (s *Session) Exit() error {
	if len(s.stack) == 0 {
		return ErrNoFrame
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.logger.Debug("exiting context", "depth", top.Depth)

	if top.Depth == 0 {
		return s.conn.Finish()
	}
	return s.dialect.Exit()
}

// With runs fn inside a context entered with cfg and always exits it.
func (s *Session) With(cfg Config, fn func(*Session) error) (err error) {
	if err := s.Enter(cfg); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Exit())
	}()
	return fn(s)
}

// Depth is the depth of the innermost context, or -1 outside any.
func (s *Session) Depth() int {
	return len(s.stack) - 1
}

// Frames returns the entered contexts, outermost first.
func (s *Session) Frames() []Frame {
	return slices.Clone(s.stack)
}

// LastReturnCode returns the status of the last status-checked command.
func (s *Session) LastReturnCode() int {
	return s.lastReturnCode
}

// SetAutoReturnCodeError switches the ExitError policy.
func (s *Session) SetAutoReturnCodeError(on bool) {
	s.autoReturnCodeError = on
}

// LastStderr returns the stderr of the last status-checked command. The
// status query itself is excluded.
func (s *Session) LastStderr() string {
	return s.lastStderr
}

// Conn returns the underlying connection.
func (s *Session) Conn() Conn {
	return s.conn
}

// Send runs command and records its status.
func (s *Session) Send(command string) (string, error) {
	out, err := s.conn.Send(command)
	if err != nil {
		return "", err
	}
	return out, s.checkStatus(command, out)
}

// RunScript runs the script at path with args and records its status.
func (s *Session) RunScript(path string, args ...string) (string, error) {
	out, err := s.dialect.RunScript(path, args...)
	if err != nil {
		return "", err
	}
	return out, s.checkStatus(path, out)
}

// RunScriptInline sends lines one by one. Only the status of the last line
// is checked.
func (s *Session) RunScriptInline(lines []string) (string, error) {
	out, err := s.dialect.RunScriptInline(lines)
	if err != nil {
		return out, err
	}
	return out, s.checkStatus(strings.Join(lines, "\n"), out)
}

func (s *Session) checkStatus(command, out string) error {
	stderr := s.conn.LastStderr()
	code, err := s.dialect.ReturnCode()
	if err != nil {
		return err
	}
	s.lastReturnCode = code
	s.lastStderr = stderr
	if code == 0 || !s.autoReturnCodeError {
		return nil
	}
	s.logger.Info("non-zero status", "command", command, "status", code, "stderr", stderr)
	return &ExitError{Command: command, Code: code, Stdout: out, Stderr: stderr}
}

// SendNowait writes command without reading its output.
func (s *Session) SendNowait(command string) error {
	return s.conn.SendNowait(command)
}

// SendRaw writes command without a terminator.
func (s *Session) SendRaw(command string) error {
	return s.conn.SendRaw(command)
}

// WaitFor waits for pattern in the output.
func (s *Session) WaitFor(pattern string, opts ...conn.CallOption) (string, error) {
	return s.conn.WaitFor(pattern, opts...)
}

// WaitUntil waits until done holds over the output.
func (s *Session) WaitUntil(done conn.Predicate, opts ...conn.CallOption) (string, error) {
	return s.conn.WaitUntil(done, opts...)
}

// PathExists reports whether path exists in the shell.
func (s *Session) PathExists(path string) (bool, error) {
	return s.dialect.PathExists(path)
}

// FileContents returns the contents of path.
func (s *Session) FileContents(path string) (string, error) {
	return s.dialect.FileContents(path)
}

// Envvars returns the shell environment.
func (s *Session) Envvars() (map[string]string, error) {
	return s.dialect.Envvars()
}

// SetEnv exports a variable.
func (s *Session) SetEnv(name, value string) error {
	return s.dialect.SetEnv(name, value)
}

// Cd changes the shell working directory.
func (s *Session) Cd(path string) error {
	return s.dialect.Cd(path)
}

// Source sources a file.
func (s *Session) Source(path string) error {
	return s.dialect.Source(path)
}
