package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/timvw/pshell/config"
)

func TestScriptLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "Plain lines",
			input: "echo one\necho two\n",
			want:  []string{"echo one", "echo two"},
		},
		{
			name:  "Blank lines and comments skipped",
			input: "#!/bin/bash\n\n# setup\ncd /tmp\n   \n  export A=1  \n",
			want:  []string{"cd /tmp", "export A=1"},
		},
		{
			name:  "No trailing newline",
			input: "pwd",
			want:  []string{"pwd"},
		},
		{
			name:  "Empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scriptLines(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("scriptLines() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) || len(got) != len(tt.want) {
				t.Errorf("scriptLines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   globalFlags
		changed []string
		check   func(*config.Config) error
		wantErr bool
	}{
		{
			name:  "Nothing changed keeps config",
			flags: globalFlags{shell: "/bin/zsh", timeout: time.Second},
			check: func(c *config.Config) error {
				if c.Shell[0] != "/bin/bash" || c.Timeout != 10*time.Second {
					return fmt.Errorf("config overridden: %v %v", c.Shell, c.Timeout)
				}
				return nil
			},
		},
		{
			name:    "Shell split into words",
			flags:   globalFlags{shell: `/bin/bash --norc -o "pipefail"`},
			changed: []string{"shell"},
			check: func(c *config.Config) error {
				want := []string{"/bin/bash", "--norc", "-o", "pipefail"}
				if fmt.Sprint(c.Shell) != fmt.Sprint(want) {
					return fmt.Errorf("Shell = %q, want %q", c.Shell, want)
				}
				return nil
			},
		},
		{
			name:    "Timeout and encoding",
			flags:   globalFlags{timeout: 2 * time.Second, encoding: "latin1"},
			changed: []string{"timeout", "encoding"},
			check: func(c *config.Config) error {
				if c.Timeout != 2*time.Second || c.Encoding != "latin1" {
					return fmt.Errorf("got %v %q", c.Timeout, c.Encoding)
				}
				return nil
			},
		},
		{
			name:    "Empty shell rejected",
			flags:   globalFlags{shell: ""},
			changed: []string{"shell"},
			wantErr: true,
		},
		{
			name:    "Unknown encoding rejected",
			flags:   globalFlags{encoding: "klingon"},
			changed: []string{"encoding"},
			wantErr: true,
		},
		{
			name:    "Negative timeout rejected",
			flags:   globalFlags{timeout: -time.Second},
			changed: []string{"timeout"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			changed := func(name string) bool {
				for _, c := range tt.changed {
					if c == name {
						return true
					}
				}
				return false
			}

			err := applyFlags(cfg, tt.flags, changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				if err := tt.check(cfg); err != nil {
					t.Error(err)
				}
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, false).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged without --verbose: %q", buf.String())
	}

	newLogger(&buf, true).Debug("shown", "key", "value")
	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("debug not logged with --verbose: %q", buf.String())
	}
}

func TestExitCodeError(t *testing.T) {
	err := fmt.Errorf("run: %w", &exitCodeError{code: 126})

	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatal("errors.As did not find exitCodeError")
	}
	if exitErr.code != 126 {
		t.Errorf("code = %d, want 126", exitErr.code)
	}
	if exitErr.Error() != "exit status 126" {
		t.Errorf("Error() = %q", exitErr.Error())
	}
}

func TestStatusLine(t *testing.T) {
	if !strings.Contains(statusLine(0), "✓ 0") {
		t.Errorf("statusLine(0) = %q", statusLine(0))
	}
	if !strings.Contains(statusLine(2), "✗ 2") {
		t.Errorf("statusLine(2) = %q", statusLine(2))
	}
}
