package harness

import (
	"fmt"
	"strings"
	"time"
)

// Scenario represents a complete E2E test scenario
type Scenario struct {
	Name        string
	Description string
	Setup       func(*Fixture) error
	Steps       []Step
	Verify      []Assertion
}

// Step is a single action. By default Cmd is run to completion; Nowait only
// writes it, and WaitFor waits for a pattern instead of running anything.
type Step struct {
	Cmd     string
	Args    []string
	Nowait  bool
	WaitFor string
	// Timeout applies to WaitFor steps. Zero uses the connection default.
	Timeout time.Duration
}

func (s Step) String() string {
	switch {
	case s.WaitFor != "":
		return fmt.Sprintf("wait for %q", s.WaitFor)
	case s.Nowait:
		return fmt.Sprintf("send %s (nowait)", commandLine(s.Cmd, s.Args))
	default:
		return commandLine(s.Cmd, s.Args)
	}
}

// Result captures the output of a step
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Pwd      string // Current working directory after command
	TimedOut bool
}

// Assertion is a function that validates test results
type Assertion func(*Result, *Fixture) error

// Common assertion builders

// AssertExitCode verifies the exit code matches expected value
func AssertExitCode(expected int) Assertion {
	return func(r *Result, f *Fixture) error {
		if r.ExitCode != expected {
			return fmt.Errorf("exit code: expected %d, got %d", expected, r.ExitCode)
		}
		return nil
	}
}

// AssertStdoutContains verifies stdout contains the expected string
func AssertStdoutContains(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		expanded := expandVars(expected, f)
		if !strings.Contains(r.Stdout, expanded) {
			return fmt.Errorf("stdout does not contain %q\nGot: %s", expanded, r.Stdout)
		}
		return nil
	}
}

// AssertStdoutNotContains verifies stdout does not contain the string
func AssertStdoutNotContains(unexpected string) Assertion {
	return func(r *Result, f *Fixture) error {
		if strings.Contains(r.Stdout, unexpected) {
			return fmt.Errorf("stdout contains %q\nGot: %s", unexpected, r.Stdout)
		}
		return nil
	}
}

// AssertStdoutEquals verifies stdout matches exactly
func AssertStdoutEquals(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		expanded := expandVars(expected, f)
		if r.Stdout != expanded {
			return fmt.Errorf("stdout: expected %q, got %q", expanded, r.Stdout)
		}
		return nil
	}
}

// AssertStderrContains verifies stderr contains the expected string
func AssertStderrContains(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		if !strings.Contains(r.Stderr, expected) {
			return fmt.Errorf("stderr does not contain %q\nGot: %s", expected, r.Stderr)
		}
		return nil
	}
}

// AssertStderrEquals verifies stderr matches exactly
func AssertStderrEquals(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		if r.Stderr != expected {
			return fmt.Errorf("stderr: expected %q, got %q", expected, r.Stderr)
		}
		return nil
	}
}

// AssertTimedOut verifies the step gave up waiting
func AssertTimedOut() Assertion {
	return func(r *Result, f *Fixture) error {
		if !r.TimedOut {
			return fmt.Errorf("expected a timeout, got output %q", r.Stdout)
		}
		return nil
	}
}

// AssertPwdEquals verifies the current directory matches expected
// Supports variable expansion: $ROOT, $TMP
func AssertPwdEquals(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		expandedExpected := expandVars(expected, f)
		if r.Pwd != expandedExpected {
			return fmt.Errorf("pwd: expected %q, got %q", expandedExpected, r.Pwd)
		}
		return nil
	}
}

// AssertPwdContains verifies the current directory contains expected substring
func AssertPwdContains(expected string) Assertion {
	return func(r *Result, f *Fixture) error {
		expandedExpected := expandVars(expected, f)
		if !strings.Contains(r.Pwd, expandedExpected) {
			return fmt.Errorf("pwd does not contain %q\nGot: %s", expandedExpected, r.Pwd)
		}
		return nil
	}
}

// AssertPathExists verifies a path exists, as seen from the fixture
func AssertPathExists(rel string) Assertion {
	return func(r *Result, f *Fixture) error {
		if !f.Exists(expandVars(rel, f)) {
			return fmt.Errorf("path %s does not exist under %s", rel, f.Root)
		}
		return nil
	}
}

func expandVars(s string, f *Fixture) string {
	if f == nil {
		return s
	}
	return strings.NewReplacer("$ROOT", f.Root, "$TMP", f.TempDir).Replace(s)
}
