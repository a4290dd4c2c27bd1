package conn

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenRe = regexp.MustCompile(`^[0-9a-f]{32}-----TERMINATOR-----$`)

func TestNewToken(t *testing.T) {
	a, b := newToken(), newToken()
	assert.Regexp(t, tokenRe, a)
	assert.NotEqual(t, a, b)
}

func TestBashTerminatorInput(t *testing.T) {
	frame := BashTerminator{}.Prepare("ls -l")

	lines := strings.Split(strings.TrimSuffix(frame.Input, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ls -l", lines[0])
	assert.Regexp(t, `^/bin/bash -c "echo [0-9a-f]{32}-----TERMINATOR----- && \(exit \$\?\)"$`, lines[1])
}

func TestBashTerminatorCustomShell(t *testing.T) {
	frame := BashTerminator{Shell: "/usr/local/bin/bash"}.Prepare("true")
	assert.Contains(t, frame.Input, "\n/usr/local/bin/bash -c \"echo ")
}

func tokenOf(t *testing.T, frame Frame) string {
	t.Helper()
	m := regexp.MustCompile(`[0-9a-f]{32}-----TERMINATOR-----`).FindString(frame.Input)
	require.NotEmpty(t, m)
	return m
}

func TestBashTerminatorDone(t *testing.T) {
	frame := BashTerminator{}.Prepare("echo hi")
	token := tokenOf(t, frame)

	assert.False(t, frame.Done("hi\n"))
	assert.False(t, frame.Done("hi\n"+token[:10]))
	assert.True(t, frame.Done("hi\n"+token+"\n"))
	assert.True(t, frame.Done("hi"+token))

	other := BashTerminator{}.Prepare("echo hi")
	assert.False(t, other.Done("hi\n"+token+"\n"))
}

func TestBashTerminatorExtract(t *testing.T) {
	frame := BashTerminator{}.Prepare("echo hi")
	token := tokenOf(t, frame)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"output then marker", "hi\n" + token + "\n", "hi"},
		{"marker only", token + "\n", ""},
		{"multi-line", "a\nb\n" + token + "\n", "a\nb"},
		{"marker mid-stream", "a\n" + token + "\ntrailer\n", "atrailer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := frame.Extract(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, frame.Extract(got))
		})
	}
}

func TestRawTerminator(t *testing.T) {
	term, err := NewRawTerminator(`^>>> `)
	require.NoError(t, err)

	frame := term.Prepare("1 + 1")
	assert.Equal(t, "1 + 1\n", frame.Input)
	assert.False(t, frame.Done("2\n"))
	assert.True(t, frame.Done("2\n>>> "))
	assert.Equal(t, "2", frame.Extract("2\n>>> "))
}

func TestRawTerminatorInvalidPrompt(t *testing.T) {
	_, err := NewRawTerminator(`(`)
	assert.Error(t, err)
}
