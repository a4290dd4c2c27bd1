package config

import (
	"fmt"

	"github.com/timvw/pshell/conn"
)

// Validate checks config values for correctness.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Shell) == 0 || c.Shell[0] == "" {
		errs = append(errs, "shell must not be empty")
	}
	if c.Encoding != "" {
		if _, err := conn.LookupEncoding(c.Encoding); err != nil {
			errs = append(errs, fmt.Sprintf("encoding: %v", err))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be > 0")
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, "wait_timeout must be > 0")
	}
	if c.StartupDelay < 0 {
		errs = append(errs, "startup_delay must be >= 0")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be > 0")
	}
	if c.ExitCommand == "" {
		errs = append(errs, "exit_command must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}
	return nil
}
