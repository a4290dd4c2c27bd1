package conn

import (
	"fmt"
	"regexp"
)

// Pattern returns a Predicate that matches expr anywhere in the accumulated
// text, in multiline mode: ^ and $ match at line boundaries.
func Pattern(expr string) (Predicate, error) {
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return re.MatchString, nil
}

// WaitFor reads until expr matches the output received since the previous
// match and returns that output. Text that arrived after the match is kept
// for the next WaitFor. The default timeout is 3s, see WithWaitTimeout.
func (c *Connection) WaitFor(expr string, opts ...CallOption) (string, error) {
	done, err := Pattern(expr)
	if err != nil {
		return "", err
	}
	return c.wait(expr, done, opts)
}

// WaitUntil is WaitFor with an arbitrary completion predicate.
func (c *Connection) WaitUntil(done Predicate, opts ...CallOption) (string, error) {
	if done == nil {
		return "", fmt.Errorf("wait: nil predicate")
	}
	return c.wait("<predicate>", done, opts)
}

func (c *Connection) wait(target string, done Predicate, opts []CallOption) (string, error) {
	co := resolveCallOptions(c.opts.waitTimeout, opts)
	if err := c.usable(); err != nil {
		return "", err
	}
	c.logger.Debug("waiting", "target", target, "timeout", co.timeout)

	res, err := c.read(readRequest{
		op:       "wait",
		target:   target,
		done:     done,
		timeout:  co.timeout,
		soft:     !co.absolute,
		keepTail: true,
	})
	if err != nil {
		return "", err
	}
	c.passed(res.merged + c.left.err + c.left.out)
	return res.merged, nil
}
