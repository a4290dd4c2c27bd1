package scenarios

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/timvw/pshell/e2e/harness"
)

// getShellAdapters returns the list of shell adapters to test based on E2E_SHELLS env var.
// E2E_SHELLS should be a comma-separated list (e.g., "bash").
// If not set, defaults to "bash".
// Fails the test if a configured shell is not available.
func getShellAdapters(t *testing.T) []harness.ShellAdapter {
	t.Helper()

	// Get shells from environment or default to bash
	shellsEnv := os.Getenv("E2E_SHELLS")
	if shellsEnv == "" {
		shellsEnv = "bash"
		t.Logf("E2E_SHELLS not set, defaulting to: %s", shellsEnv)
	} else {
		t.Logf("E2E_SHELLS=%s", shellsEnv)
	}

	// Parse comma-separated shell names
	shellNames := strings.Split(shellsEnv, ",")
	adapters := make([]harness.ShellAdapter, 0, len(shellNames))

	for _, name := range shellNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		adapter := createShellAdapter(name)
		if adapter == nil {
			t.Fatalf("Unknown or unsupported shell in E2E_SHELLS: %s (supported: bash)", name)
		}

		// Verify shell is available on this system
		if err := verifyShellAvailable(name); err != nil {
			t.Skipf("Shell '%s' not available: %v", name, err)
		}

		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		t.Fatal("No valid shell adapters configured")
	}

	return adapters
}

// createShellAdapter creates the adapter for a shell name
func createShellAdapter(name string) harness.ShellAdapter {
	switch name {
	case "bash":
		return harness.NewBashAdapter()
	default:
		return nil
	}
}

// verifyShellAvailable checks if a shell executable is available in PATH
func verifyShellAvailable(shell string) error {
	_, err := exec.LookPath(shell)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", shell)
	}
	return nil
}

// runScenario runs scenario once per configured shell
func runScenario(t *testing.T, scenario harness.Scenario) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	for _, adapter := range getShellAdapters(t) {
		t.Run(adapter.Name(), func(t *testing.T) {
			runner, err := harness.NewRunner(t, adapter)
			if err != nil {
				t.Fatalf("Failed to create runner: %v", err)
			}
			defer runner.Cleanup()

			if err := runner.Run(scenario); err != nil {
				t.Fatalf("Scenario failed: %v", err)
			}
		})
	}
}
