package harness

import "time"

// ShellAdapter defines the interface for shell-specific test execution
type ShellAdapter interface {
	// Name returns the shell name (e.g., "bash")
	Name() string

	// Setup starts the shell in the fixture root with the fixture environment
	Setup(f *Fixture) error

	// Execute runs a command in the shell and captures the result
	Execute(cmd string, args []string) (*Result, error)

	// SendNowait writes a command without waiting for it to finish
	SendNowait(cmd string, args []string) error

	// WaitFor reads output until pattern matches or timeout elapses
	WaitFor(pattern string, timeout time.Duration) (*Result, error)

	// GetPwd returns the current working directory in the shell
	GetPwd() (string, error)

	// Cleanup tears down the shell adapter and cleans up resources
	Cleanup() error
}
