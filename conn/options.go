package conn

import (
	"log/slog"
	"time"
)

type options struct {
	encoding        string
	logger          *slog.Logger
	startupDelay    time.Duration
	pollInterval    time.Duration
	readSize        int
	exitCommand     string
	dir             string
	env             []string
	shutdownTimeout time.Duration
	terminalInput   bool
	sendTimeout     time.Duration
	waitTimeout     time.Duration
}

// Option configures a Connection created by New.
type Option func(*options)

// WithEncoding sets the text encoding used to decode the child's output,
// by IANA name (e.g. "utf-8", "iso-8859-1"). The default is derived from
// the locale environment.
func WithEncoding(name string) Option {
	return func(o *options) {
		o.encoding = name
	}
}

// WithLogger sets the diagnostic sink. Raw reads are traced at Debug,
// writes at Info. The default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStartupDelay sets how long Start waits for a startup banner to flush
// before draining it.
func WithStartupDelay(d time.Duration) Option {
	return func(o *options) {
		o.startupDelay = d
	}
}

// WithPollInterval sets the sleep between polls that returned no data.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithReadSize sets the maximum number of bytes read per stream per poll.
func WithReadSize(n int) Option {
	return func(o *options) {
		o.readSize = n
	}
}

// WithExitCommand sets the line written to the child by Finish.
func WithExitCommand(cmd string) Option {
	return func(o *options) {
		o.exitCommand = cmd
	}
}

// WithDir sets the working directory of the child.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithEnv sets the child's environment. Each entry is "KEY=VALUE".
// Without it the child inherits the current environment.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithShutdownTimeout sets how long Finish waits after SIGTERM before
// killing the child.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}

// WithSendTimeout sets the timeout Send uses when the call gives none.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		o.sendTimeout = d
	}
}

// WithWaitTimeout sets the timeout WaitFor and WaitUntil use when the call
// gives none.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = d
	}
}

// WithTerminalInput connects the child's stdin to a pseudo-terminal in raw
// mode instead of a pipe, for programs that refuse to run unless stdin is a
// tty. Stdout and stderr stay pipes.
func WithTerminalInput() Option {
	return func(o *options) {
		o.terminalInput = true
	}
}

// CallOption configures a single Send, WaitFor or WaitUntil call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout  time.Duration
	forget   bool
	absolute bool
}

// Within overrides the timeout for a single call.
// A value of 0 means "use defaults".
func Within(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

// Forget keeps the command out of the Output history. It is still
// recorded in DebugOutput and StderrOutput.
func Forget() CallOption {
	return func(o *callOptions) {
		o.forget = true
	}
}

// AbsoluteTimeout measures the timeout from the start of the call instead
// of restarting it whenever new data arrives.
func AbsoluteTimeout() CallOption {
	return func(o *callOptions) {
		o.absolute = true
	}
}

const (
	defaultSendTimeout     = 10 * time.Second
	defaultWaitTimeout     = 3 * time.Second
	defaultStartupDelay    = 500 * time.Millisecond
	defaultPollInterval    = 100 * time.Millisecond
	defaultReadSize        = 1024
	defaultExitCommand     = "exit"
	defaultShutdownTimeout = 2 * time.Second
	minPollInterval        = time.Millisecond
)

func defaultOptions() options {
	return options{
		startupDelay:    defaultStartupDelay,
		pollInterval:    defaultPollInterval,
		readSize:        defaultReadSize,
		exitCommand:     defaultExitCommand,
		shutdownTimeout: defaultShutdownTimeout,
		sendTimeout:     defaultSendTimeout,
		waitTimeout:     defaultWaitTimeout,
	}
}

func resolveCallOptions(defaultTimeout time.Duration, opts []CallOption) callOptions {
	co := callOptions{}
	for _, o := range opts {
		o(&co)
	}
	if co.timeout <= 0 {
		co.timeout = defaultTimeout
	}
	return co
}
