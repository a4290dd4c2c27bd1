// Package dialect maps shell operations onto the command text a particular
// shell understands. The process-driving itself lives in package conn; a
// dialect only composes Send calls.
package dialect

import (
	"fmt"

	"github.com/timvw/pshell/conn"
)

// Sender is the part of a connection a dialect needs.
// *conn.Connection implements it.
type Sender interface {
	Send(text string, opts ...conn.CallOption) (string, error)
	SendRaw(text string) error
	LastStderr() string
	Drain() error
}

// Dialect is the set of shell operations a session can perform.
type Dialect interface {
	PathExists(path string) (bool, error)
	// FileContents returns an error wrapping fs.ErrNotExist for missing paths.
	FileContents(path string) (string, error)
	Envvars() (map[string]string, error)
	RunScriptInline(lines []string) (string, error)
	RunScript(path string, args ...string) (string, error)
	SetEnv(name, value string) error
	Source(path string) error
	Cd(path string) error
	ReturnCode() (int, error)
	StartSubshell() error
	Exit() error
}

// StatusParseError is returned when the shell's status query does not
// produce an integer.
type StatusParseError struct {
	Output string
	Err    error
}

func (e *StatusParseError) Error() string {
	return fmt.Sprintf("parse exit status %q: %v", e.Output, e.Err)
}

func (e *StatusParseError) Unwrap() error {
	return e.Err
}
