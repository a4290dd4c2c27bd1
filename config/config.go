package config

import (
	"errors"
	"log/slog"
	"time"

	"github.com/timvw/pshell/conn"
	"github.com/timvw/pshell/session"
)

// Config holds pshell configuration. Values present in the config file
// override DefaultConfig, including explicit zero values.
type Config struct {
	Shell         []string      `toml:"shell"`
	Encoding      string        `toml:"encoding"`
	Timeout       time.Duration `toml:"timeout"`
	WaitTimeout   time.Duration `toml:"wait_timeout"`
	StartupDelay  time.Duration `toml:"startup_delay"`
	PollInterval  time.Duration `toml:"poll_interval"`
	ExitCommand   string        `toml:"exit_command"`
	TerminalInput bool          `toml:"terminal_input"`

	Session SessionConfig `toml:"session"`
}

type SessionConfig struct {
	Dir                 string            `toml:"dir"`
	Source              []string          `toml:"source"`
	AutoReturnCodeError bool              `toml:"auto_return_code_error"`
	Env                 map[string]string `toml:"env"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Shell:        []string{conn.DefaultShell},
		Timeout:      10 * time.Second,
		WaitTimeout:  3 * time.Second,
		StartupDelay: 500 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
		ExitCommand:  "exit",
		Session: SessionConfig{
			AutoReturnCodeError: true,
		},
	}
}

// ConnOptions translates the configuration into connection options.
func (c *Config) ConnOptions(logger *slog.Logger) []conn.Option {
	opts := []conn.Option{
		conn.WithEncoding(c.Encoding),
		conn.WithSendTimeout(c.Timeout),
		conn.WithWaitTimeout(c.WaitTimeout),
		conn.WithStartupDelay(c.StartupDelay),
		conn.WithPollInterval(c.PollInterval),
		conn.WithExitCommand(c.ExitCommand),
	}
	if logger != nil {
		opts = append(opts, conn.WithLogger(logger))
	}
	if c.TerminalInput {
		opts = append(opts, conn.WithTerminalInput())
	}
	return opts
}

// Connection builds an unstarted connection to the configured shell.
func (c *Config) Connection(logger *slog.Logger) (*conn.Connection, error) {
	if len(c.Shell) == 0 {
		return nil, errors.New("shell must not be empty")
	}
	return conn.New(c.Shell, conn.BashTerminator{Shell: c.Shell[0]}, c.ConnOptions(logger)...)
}

// SessionOptions translates the configuration into session options.
func (c *Config) SessionOptions(logger *slog.Logger) []session.Option {
	opts := []session.Option{session.WithAutoReturnCodeError(c.Session.AutoReturnCodeError)}
	if logger != nil {
		opts = append(opts, session.WithLogger(logger))
	}
	return opts
}

// Frame returns the context applied when the session's outermost frame is
// entered.
func (s SessionConfig) Frame() session.Config {
	return session.Config{
		Dir:    s.Dir,
		Env:    s.Env,
		Source: s.Source,
	}
}
