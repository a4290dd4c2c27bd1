// Package conn drives a line-based interactive process, usually a shell, as a
// subordinate process and reports the output of each command it is sent.
//
// The child exposes no completion signal of its own. A [Terminator] frames
// every command so that a unique marker token is printed once the command has
// run; the read loop polls stdout and stderr without blocking until the marker
// shows up, then strips it from the visible result.
//
// # Quick Start
//
//	c, err := conn.LocalBash()
//	if err != nil {
//		return err
//	}
//	if err := c.Start(); err != nil {
//		return err
//	}
//	defer c.Finish()
//
//	out, err := c.Send("ls -alh /")
//
// # Sending
//
// [Connection.Send] writes the framed command and blocks until its marker
// is seen or the timeout expires. [Connection.SendNowait] writes a line and
// returns immediately; pair it with [Connection.WaitFor]. [Connection.SendRaw]
// bypasses the terminator entirely, for example to start a nested shell.
//
// # Waiting
//
// [Connection.WaitFor] compiles a regular expression in multiline mode and
// evaluates it against all text accumulated by the call. [Connection.WaitUntil]
// accepts any [Predicate]. Text read past the match is kept for the next wait,
// so consecutive waits never see the same bytes twice.
//
// Wait behavior:
//
//   - Defaults: 10s for Send, 3s for WaitFor, 100ms poll interval
//   - Per-call overrides: [Within], [Forget], [AbsoluteTimeout]
//   - The timeout is soft by default: any new data restarts the clock
//   - Timeouts are reported as [*TimeoutError], matching [ErrTimeout]
//
// # Ordering
//
// Both streams are polled once per iteration, stderr first. Lines read in the
// same iteration are ordered stderr before stdout regardless of when the
// child wrote them. Order within a stream is always preserved.
//
// # Concurrency
//
// A Connection is driven entirely from the calling goroutine and holds no
// locks. Do not call its methods from more than one goroutine at a time.
package conn
