package harness

import (
	"fmt"
	"os"
	"testing"

	"github.com/timvw/pshell/conn"
)

// Runner executes scenarios through shell adapters
type Runner struct {
	t       *testing.T
	adapter ShellAdapter
	fixture *Fixture
}

// NewRunner creates a new test runner
func NewRunner(t *testing.T, adapter ShellAdapter) (*Runner, error) {
	t.Helper()

	// Create fixture
	fixture, err := NewFixture(t)
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture: %w", err)
	}

	// Setup the shell adapter
	if err := adapter.Setup(fixture); err != nil {
		return nil, fmt.Errorf("failed to setup adapter: %w", err)
	}

	return &Runner{
		t:       t,
		adapter: adapter,
		fixture: fixture,
	}, nil
}

// Fixture returns the runner's fixture
func (r *Runner) Fixture() *Fixture {
	return r.fixture
}

// Run executes a scenario and reports results
func (r *Runner) Run(scenario Scenario) error {
	r.t.Helper()

	r.t.Logf("Running scenario: %s", scenario.Name)
	if scenario.Description != "" {
		r.t.Logf("  Description: %s", scenario.Description)
	}

	// Execute setup
	if scenario.Setup != nil {
		r.t.Logf("  Running setup...")
		if err := scenario.Setup(r.fixture); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}

	// Execute steps
	var lastResult *Result
	for i, step := range scenario.Steps {
		r.t.Logf("  Step %d: %s", i+1, step)

		result, err := r.runStep(step)
		if err != nil {
			return fmt.Errorf("step %d failed: %w", i+1, err)
		}
		if result == nil {
			continue
		}

		lastResult = result
		if result.TimedOut {
			r.t.Logf("    Timed out")
			continue
		}
		r.t.Logf("    Exit code: %d", result.ExitCode)
		if result.Pwd != "" {
			r.t.Logf("    Pwd: %s", result.Pwd)
		}
		if result.Stdout != "" {
			r.t.Logf("    Stdout: %s", result.Stdout)
		}
		if result.Stderr != "" {
			r.t.Logf("    Stderr: %s", result.Stderr)
		}
	}

	// Run assertions
	if len(scenario.Verify) > 0 {
		if lastResult == nil {
			return fmt.Errorf("no step produced a result to verify")
		}
		r.t.Logf("  Running %d assertions...", len(scenario.Verify))
		for i, assertion := range scenario.Verify {
			if err := assertion(lastResult, r.fixture); err != nil {
				return fmt.Errorf("assertion %d failed: %w", i+1, err)
			}
			r.t.Logf("    Assertion %d: ✓", i+1)
		}
	}

	r.t.Logf("  ✓ Scenario passed: %s", scenario.Name)
	return nil
}

func (r *Runner) runStep(step Step) (*Result, error) {
	switch {
	case step.WaitFor != "":
		return r.adapter.WaitFor(step.WaitFor, step.Timeout)
	case step.Nowait:
		return nil, r.adapter.SendNowait(step.Cmd, step.Args)
	default:
		return r.adapter.Execute(step.Cmd, step.Args)
	}
}

// Cleanup cleans up the runner resources
func (r *Runner) Cleanup() error {
	if r.adapter != nil {
		return r.adapter.Cleanup()
	}
	return nil
}

// RequireShell skips the test when shell is not available. PSHELL_E2E_SHELL
// overrides the default shell path.
func RequireShell(t *testing.T) string {
	t.Helper()

	shell := os.Getenv("PSHELL_E2E_SHELL")
	if shell == "" {
		shell = conn.DefaultShell
	}
	if _, err := os.Stat(shell); err != nil {
		t.Skipf("shell %s not available: %v", shell, err)
	}
	return shell
}
