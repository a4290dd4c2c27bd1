package dialect

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/pshell/conn"
)

// fakeSender records what it is sent and answers from a canned table.
type fakeSender struct {
	sent    []string
	raw     []string
	replies map[string]string
	errs    map[string]error
	drained int
}

func newFakeSender() *fakeSender {
	return &fakeSender{replies: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeSender) Send(text string, opts ...conn.CallOption) (string, error) {
	f.sent = append(f.sent, text)
	if err, ok := f.errs[text]; ok {
		return "", err
	}
	return f.replies[text], nil
}

func (f *fakeSender) SendRaw(text string) error {
	f.raw = append(f.raw, text)
	return nil
}

func (f *fakeSender) LastStderr() string { return "" }

func (f *fakeSender) Drain() error {
	f.drained++
	return nil
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", "''"},
		{"a b", "'a b'"},
		{"$HOME", "'$HOME'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Quote(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathExists(t *testing.T) {
	s := newFakeSender()
	s.replies["if [ -e /etc ]; then echo yes; else echo no; fi"] = "yes"
	s.replies["if [ -e /nope ]; then echo yes; else echo no; fi"] = "no"
	b := NewBash(s, "")

	ok, err := b.PathExists("/etc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.PathExists("/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileContents(t *testing.T) {
	s := newFakeSender()
	s.replies["if [ -e 'my file' ]; then echo yes; else echo no; fi"] = "yes"
	s.replies["cat 'my file'"] = "contents"
	b := NewBash(s, "")

	got, err := b.FileContents("my file")
	require.NoError(t, err)
	assert.Equal(t, "contents", got)

	_, err = b.FileContents("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParseEnv(t *testing.T) {
	got := parseEnv("HOME=/root\nMULTI=line one\nline two\nEMPTY=\nPATH=/bin:/usr/bin")
	assert.Equal(t, map[string]string{
		"HOME":  "/root",
		"MULTI": "line one\nline two",
		"EMPTY": "",
		"PATH":  "/bin:/usr/bin",
	}, got)
}

func TestSetEnv(t *testing.T) {
	s := newFakeSender()
	b := NewBash(s, "")

	require.NoError(t, b.SetEnv("GREETING", "hello world"))
	assert.Equal(t, []string{"export GREETING='hello world'"}, s.sent)

	assert.Error(t, b.SetEnv("1BAD", "x"))
	assert.Error(t, b.SetEnv("A-B", "x"))
	assert.Len(t, s.sent, 1)
}

func TestRunScript(t *testing.T) {
	s := newFakeSender()
	b := NewBash(s, "")

	_, err := b.RunScript("./run.sh", "one", "two words")
	require.NoError(t, err)
	assert.Equal(t, []string{"./run.sh one 'two words'"}, s.sent)
}

func TestRunScriptInline(t *testing.T) {
	s := newFakeSender()
	s.replies["echo a"] = "a"
	s.replies["echo b"] = "b"
	b := NewBash(s, "")

	out, err := b.RunScriptInline([]string{"echo a", "true", "echo b"})
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", out)
}

func TestRunScriptInlineStopsOnError(t *testing.T) {
	s := newFakeSender()
	s.replies["echo a"] = "a"
	s.errs["hang"] = conn.ErrTimeout
	b := NewBash(s, "")

	out, err := b.RunScriptInline([]string{"echo a", "hang", "echo b"})
	assert.ErrorIs(t, err, conn.ErrTimeout)
	assert.Equal(t, "a", out)
	assert.Equal(t, []string{"echo a", "hang"}, s.sent)
}

func TestReturnCode(t *testing.T) {
	s := newFakeSender()
	s.replies["echo $?"] = "126"
	b := NewBash(s, "")

	code, err := b.ReturnCode()
	require.NoError(t, err)
	assert.Equal(t, 126, code)

	s.replies["echo $?"] = "garbage"
	_, err = b.ReturnCode()
	var parseErr *StatusParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "garbage", parseErr.Output)
}

func TestSubshell(t *testing.T) {
	s := newFakeSender()
	b := NewBash(s, "/usr/bin/bash")

	require.NoError(t, b.StartSubshell())
	require.NoError(t, b.Exit())
	assert.Equal(t, []string{"/usr/bin/bash", "exit"}, s.sent)
	assert.Equal(t, 1, s.drained)
}

func TestCdAndSource(t *testing.T) {
	s := newFakeSender()
	b := NewBash(s, "")

	require.NoError(t, b.Cd("/tmp/with space"))
	require.NoError(t, b.Source("env.sh"))
	assert.Equal(t, []string{"cd '/tmp/with space'", "source env.sh"}, s.sent)
}
