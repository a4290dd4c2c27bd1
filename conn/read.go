package conn

import (
	"strings"
	"time"
)

type source int

const (
	fromStdout source = iota
	fromStderr
)

func (s source) String() string {
	if s == fromStderr {
		return "stderr"
	}
	return "stdout"
}

type taggedLine struct {
	src  source
	text string
}

// leftovers hold text read past the point where the previous call matched.
type leftovers struct {
	out string
	err string
}

type readRequest struct {
	op      string
	target  string
	done    Predicate
	timeout time.Duration
	soft    bool
	// skip, when set, discards text until it matches: output of an earlier
	// Send that timed out before its marker arrived.
	skip Predicate
	// keepTail sends text drained after the match to the leftovers instead of
	// the result.
	keepTail bool
}

type readResult struct {
	merged string
	out    string
	err    string
}

func (r *readResult) add(l taggedLine) {
	r.merged += l.text
	if l.src == fromStderr {
		r.err += l.text
	} else {
		r.out += l.text
	}
}

// interleave splits both chunks into lines, stderr lines first.
func interleave(errText, outText string) []taggedLine {
	var lines []taggedLine
	for _, l := range strings.SplitAfter(errText, "\n") {
		if l != "" {
			lines = append(lines, taggedLine{src: fromStderr, text: l})
		}
	}
	for _, l := range strings.SplitAfter(outText, "\n") {
		if l != "" {
			lines = append(lines, taggedLine{src: fromStdout, text: l})
		}
	}
	return lines
}

func remainder(lines []taggedLine) leftovers {
	var out, err strings.Builder
	for _, l := range lines {
		if l.src == fromStderr {
			err.WriteString(l.text)
		} else {
			out.WriteString(l.text)
		}
	}
	return leftovers{out: out.String(), err: err.String()}
}

// read polls both streams until req.done holds over the merged text or the
// timeout elapses.
func (c *Connection) read(req readRequest) (readResult, error) {
	var res readResult

	pendingOut, pendingErr := c.left.out, c.left.err
	c.left = leftovers{}

	skipping := req.skip != nil
	var skipped string

	started := time.Now()
	matched := false
	for !matched {
		errText, err := c.stderr.TryRead()
		if err != nil {
			return res, c.fail(err)
		}
		outText, err := c.stdout.TryRead()
		if err != nil {
			return res, c.fail(err)
		}
		pendingErr += errText
		pendingOut += outText

		if pendingErr != "" || pendingOut != "" {
			if req.soft {
				started = time.Now()
			}
			lines := interleave(pendingErr, pendingOut)
			pendingErr, pendingOut = "", ""
			for i, l := range lines {
				if skipping {
					skipped += l.text
					if req.skip(skipped) {
						skipping = false
						c.stale = nil
						c.logger.Debug("discarded stale output", "op", req.op, "output", skipped)
					}
					continue
				}
				res.add(l)
				if req.done(res.merged) {
					c.left = remainder(lines[i+1:])
					c.logger.Debug("matched", "op", req.op, "target", req.target,
						"output", res.merged, "leftover_stdout", c.left.out, "leftover_stderr", c.left.err)
					matched = true
					break
				}
			}
		} else {
			time.Sleep(c.opts.pollInterval)
		}

		if !matched && time.Since(started) >= req.timeout {
			c.logger.Info("timed out", "op", req.op, "target", req.target, "timeout", req.timeout)
			return res, &TimeoutError{Op: req.op, Target: req.target, Limit: req.timeout, Output: res.merged}
		}
	}

	// Pick up output flushed right after the match.
	for {
		outText, err := c.stdout.TryRead()
		if err != nil {
			return res, c.fail(err)
		}
		errText, err := c.stderr.TryRead()
		if err != nil {
			return res, c.fail(err)
		}
		if outText == "" && errText == "" {
			break
		}
		if req.keepTail {
			c.left.out += outText
			c.left.err += errText
			continue
		}
		res.merged += errText + outText
		res.out += outText
		res.err += errText
	}
	return res, nil
}
