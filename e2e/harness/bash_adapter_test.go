//go:build !windows

package harness

import (
	"strings"
	"testing"
	"time"
)

func TestBashAdapterBasicCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping bash adapter test in short mode")
	}
	RequireShell(t)

	fixture, err := NewFixture(t)
	if err != nil {
		t.Fatalf("NewFixture failed: %v", err)
	}

	adapter := NewBashAdapter()
	if err := adapter.Setup(fixture); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer adapter.Cleanup()

	// Test 1: Execute echo command
	t.Run("execute echo", func(t *testing.T) {
		result, err := adapter.Execute("echo", []string{"hello", "world"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if result.ExitCode != 0 {
			t.Errorf("Exit code = %d, want 0", result.ExitCode)
		}

		if result.Stdout != "hello world" {
			t.Errorf("Stdout = %q, want %q", result.Stdout, "hello world")
		}
	})

	// Test 2: Get pwd
	t.Run("get pwd", func(t *testing.T) {
		pwd, err := adapter.GetPwd()
		if err != nil {
			t.Fatalf("GetPwd failed: %v", err)
		}

		if pwd != fixture.Root {
			t.Errorf("Pwd = %q, want %q", pwd, fixture.Root)
		}
	})

	// Test 3: Fixture environment is exported
	t.Run("fixture env", func(t *testing.T) {
		result, err := adapter.Execute("echo", []string{"$FIXTURE_ROOT"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if result.Stdout != fixture.Root {
			t.Errorf("Stdout = %q, want %q", result.Stdout, fixture.Root)
		}
	})

	// Test 4: Execute command with non-zero exit code
	t.Run("non-zero exit code", func(t *testing.T) {
		result, err := adapter.Execute("false", nil)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if result.ExitCode == 0 {
			t.Error("Exit code = 0, want non-zero")
		}
	})

	// Test 5: stderr is captured separately
	t.Run("stderr", func(t *testing.T) {
		result, err := adapter.Execute("echo", []string{"oops", ">&2"})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if result.Stdout != "" {
			t.Errorf("Stdout = %q, want empty", result.Stdout)
		}
		if result.Stderr != "oops" {
			t.Errorf("Stderr = %q, want %q", result.Stderr, "oops")
		}
	})

	// Test 6: cd command changes pwd
	t.Run("cd changes pwd", func(t *testing.T) {
		result, err := adapter.Execute("cd", []string{".."})
		if err != nil {
			t.Fatalf("Execute cd failed: %v", err)
		}

		if result.ExitCode != 0 {
			t.Errorf("cd exit code = %d, want 0", result.ExitCode)
		}

		if result.Pwd != fixture.TempDir {
			t.Errorf("Pwd = %q, want %q", result.Pwd, fixture.TempDir)
		}
	})

	// Test 7: nowait then wait
	t.Run("nowait and wait", func(t *testing.T) {
		if err := adapter.SendNowait("echo", []string{"ping"}); err != nil {
			t.Fatalf("SendNowait failed: %v", err)
		}

		result, err := adapter.WaitFor("^ping$", time.Second)
		if err != nil {
			t.Fatalf("WaitFor failed: %v", err)
		}
		if result.TimedOut {
			t.Fatal("WaitFor timed out")
		}
		if !strings.Contains(result.Stdout, "ping") {
			t.Errorf("Stdout does not contain 'ping': %q", result.Stdout)
		}
	})

	// Test 8: wait that never matches
	t.Run("wait timeout", func(t *testing.T) {
		result, err := adapter.WaitFor("never-printed", 100*time.Millisecond)
		if err != nil {
			t.Fatalf("WaitFor failed: %v", err)
		}
		if !result.TimedOut {
			t.Errorf("expected timeout, got %q", result.Stdout)
		}
	})
}

func TestBashAdapterNotSetUp(t *testing.T) {
	adapter := NewBashAdapter()

	if _, err := adapter.Execute("true", nil); err == nil {
		t.Error("Execute before Setup succeeded")
	}
	if _, err := adapter.GetPwd(); err == nil {
		t.Error("GetPwd before Setup succeeded")
	}
	if err := adapter.Cleanup(); err != nil {
		t.Errorf("Cleanup before Setup = %v, want nil", err)
	}
}

func TestBashAdapterName(t *testing.T) {
	adapter := NewBashAdapter()
	if adapter.Name() != "bash" {
		t.Errorf("Name() = %q, want %q", adapter.Name(), "bash")
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		cmd  string
		args []string
		want string
	}{
		{cmd: "pwd", want: "pwd"},
		{cmd: "echo", args: []string{"a", "b"}, want: "echo a b"},
		{cmd: "echo", args: []string{"$HOME", ">&2"}, want: "echo $HOME >&2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := commandLine(tt.cmd, tt.args); got != tt.want {
				t.Errorf("commandLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
