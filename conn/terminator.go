package conn

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultShell is the shell spawned by LocalBash and used by BashTerminator
// when no shell is configured.
const DefaultShell = "/bin/bash"

const tokenSuffix = "-----TERMINATOR-----"

// Predicate reports whether the text accumulated so far completes a call.
type Predicate func(text string) bool

// Frame is what a Terminator produces for one command.
type Frame struct {
	// Input is written to the child verbatim. It includes the command itself.
	Input string
	// Done reports completion over the merged stderr and stdout text.
	Done Predicate
	// Extract strips protocol artifacts from the finished output.
	// Nil means the text is returned as read.
	Extract func(text string) string
}

// Terminator decides how a command is framed on the wire and how its
// completion is recognised in the output.
type Terminator interface {
	Prepare(command string) Frame
}

// BashTerminator follows each command with a marker line that echoes a
// unique token and then exits with the command's status, so $? survives.
type BashTerminator struct {
	Shell string
}

// Prepare frames command with a fresh token.
func (t BashTerminator) Prepare(command string) Frame {
	shell := t.Shell
	if shell == "" {
		shell = DefaultShell
	}
	token := newToken()
	strip := regexp.MustCompile(`\s*` + regexp.QuoteMeta(token) + `\s*`)

	return Frame{
		Input: command + "\n" + fmt.Sprintf("%s -c \"echo %s && (exit $?)\"\n", shell, token),
		Done: func(text string) bool {
			return strings.Contains(text, token)
		},
		Extract: func(text string) string {
			return strip.ReplaceAllString(text, "")
		},
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + tokenSuffix
}

// RawTerminator writes commands unchanged and treats a prompt as the end of
// their output. It suits REPLs that print a prompt after every evaluation,
// such as python -i or sqlite3.
type RawTerminator struct {
	prompt *regexp.Regexp
}

// NewRawTerminator compiles prompt in multiline mode.
func NewRawTerminator(prompt string) (*RawTerminator, error) {
	re, err := regexp.Compile("(?m)" + prompt)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt pattern %q: %w", prompt, err)
	}
	return &RawTerminator{prompt: re}, nil
}

// Prepare frames command as-is; the prompt ends its output.
func (t *RawTerminator) Prepare(command string) Frame {
	return Frame{
		Input: command + "\n",
		Done:  t.prompt.MatchString,
		Extract: func(text string) string {
			locs := t.prompt.FindAllStringIndex(text, -1)
			if len(locs) > 0 {
				last := locs[len(locs)-1]
				text = text[:last[0]] + text[last[1]:]
			}
			return strings.TrimRight(text, " \t\r\n")
		},
	}
}
