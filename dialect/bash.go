package dialect

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/timvw/pshell/conn"
)

// Bash implements Dialect for bash.
type Bash struct {
	sender Sender
	shell  string
}

var _ Dialect = (*Bash)(nil)

// NewBash returns a bash dialect sending through s. Nested shells are
// started with shell, or conn.DefaultShell when empty.
func NewBash(s Sender, shell string) *Bash {
	if shell == "" {
		shell = conn.DefaultShell
	}
	return &Bash{sender: s, shell: shell}
}

// Quote returns s quoted as a single bash word.
func Quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote %q: %w", s, err)
	}
	return q, nil
}

// PathExists tests path with [ -e ].
func (b *Bash) PathExists(path string) (bool, error) {
	q, err := Quote(path)
	if err != nil {
		return false, err
	}
	out, err := b.sender.Send(fmt.Sprintf("if [ -e %s ]; then echo yes; else echo no; fi", q), conn.Forget())
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "yes", nil
}

// FileContents returns the output of cat path.
func (b *Bash) FileContents(path string) (string, error) {
	exists, err := b.PathExists(path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	q, err := Quote(path)
	if err != nil {
		return "", err
	}
	return b.sender.Send("cat "+q, conn.Forget())
}

// Envvars parses the output of env. Lines without '=' continue the value of
// the previous variable.
func (b *Bash) Envvars() (map[string]string, error) {
	out, err := b.sender.Send("env", conn.Forget())
	if err != nil {
		return nil, err
	}
	return parseEnv(out), nil
}

func parseEnv(out string) map[string]string {
	vars := make(map[string]string)
	last := ""
	for _, line := range strings.Split(out, "\n") {
		name, value, ok := strings.Cut(line, "=")
		if ok && syntax.ValidName(name) {
			vars[name] = value
			last = name
			continue
		}
		if last != "" {
			vars[last] += "\n" + line
		}
	}
	return vars
}

// RunScriptInline sends each line separately and joins their outputs.
func (b *Bash) RunScriptInline(lines []string) (string, error) {
	outs := make([]string, 0, len(lines))
	for _, l := range lines {
		out, err := b.sender.Send(l)
		if err != nil {
			return strings.Join(outs, "\n"), err
		}
		outs = append(outs, out)
	}
	return strings.Join(outs, "\n"), nil
}

// RunScript runs the script at path with quoted args.
func (b *Bash) RunScript(path string, args ...string) (string, error) {
	words := make([]string, 0, len(args)+1)
	for _, w := range append([]string{path}, args...) {
		q, err := Quote(w)
		if err != nil {
			return "", err
		}
		words = append(words, q)
	}
	return b.sender.Send(strings.Join(words, " "))
}

// SetEnv exports name=value.
func (b *Bash) SetEnv(name, value string) error {
	if !syntax.ValidName(name) {
		return fmt.Errorf("invalid variable name %q", name)
	}
	q, err := Quote(value)
	if err != nil {
		return err
	}
	_, err = b.sender.Send(fmt.Sprintf("export %s=%s", name, q), conn.Forget())
	return err
}

// Source sources the file at path.
func (b *Bash) Source(path string) error {
	q, err := Quote(path)
	if err != nil {
		return err
	}
	_, err = b.sender.Send("source "+q, conn.Forget())
	return err
}

// Cd changes the working directory.
func (b *Bash) Cd(path string) error {
	q, err := Quote(path)
	if err != nil {
		return err
	}
	_, err = b.sender.Send("cd " + q)
	return err
}

// ReturnCode reports the status of the previous command.
func (b *Bash) ReturnCode() (int, error) {
	out, err := b.sender.Send("echo $?", conn.Forget())
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, &StatusParseError{Output: out, Err: err}
	}
	return code, nil
}

// StartSubshell starts a nested shell reading the same input, then discards
// anything it printed on startup.
func (b *Bash) StartSubshell() error {
	if _, err := b.sender.Send(b.shell, conn.Forget()); err != nil {
		return fmt.Errorf("start subshell: %w", err)
	}
	return b.sender.Drain()
}

// Exit leaves the current shell.
func (b *Bash) Exit() error {
	_, err := b.sender.Send("exit", conn.Forget())
	return err
}
