// Package recurring runs tasks which poll their backlog, with policies deciding when to poll again.
package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/opst/eoflow/pkg/loop"
)

// ParsePolicy reads a policy written as "forever", "forever:COOLDOWN" or "backlog".
func ParsePolicy(s string) (Policy, error) {
	typ, param, ok := strings.Cut(s, ":")
	switch typ {
	case "forever":
		if !ok || param == "" {
			return Forever(0), nil
		}

		cooldown, err := time.ParseDuration(param)
		if err != nil {
			return nil, fmt.Errorf(`failed to parse: %s as "forever:COOLDOWN": %w`, s, err)
		}
		return Forever(cooldown), nil
	case "backlog":
		if ok {
			return nil, fmt.Errorf("backlog policy does not take parameters: %s", s)
		}
		return Backlog(), nil
	}
	return nil, fmt.Errorf("unknown policy name: %s (should be one of -- forever|backlog)", typ)
}

// Policy decides the next step of a loop from the result of an iteration.
type Policy interface {
	// updated is true when the iteration has processed something.
	Next(updated bool, err error) loop.Next
	String() string
}

// Forever polls again immediately while something is processed,
// and after the cooldown when the backlog is empty.
//
// Errors do not stop the loop. Wrap with UntilError to stop.
func Forever(cooldown time.Duration) Policy {
	return forever(cooldown)
}

type forever time.Duration

func (f forever) String() string {
	return fmt.Sprintf("forever:%s", time.Duration(f).String())
}

func (f forever) Next(updated bool, _ error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Continue(time.Duration(f))
}

// Backlog polls again immediately while something is processed,
// and breaks without error when the backlog is empty.
func Backlog() Policy {
	return backlog
}

type backlogPolicy struct{}

func (backlogPolicy) String() string {
	return "backlog"
}

func (backlogPolicy) Next(updated bool, _ error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Break(nil)
}

var backlog = backlogPolicy{}

// UntilError breaks with the error of an iteration. Otherwise p decides.
func UntilError(p Policy) Policy {
	return untilError{base: p}
}

type untilError struct {
	base Policy
}

func (u untilError) String() string {
	return fmt.Sprintf("%s (until error)", u.base.String())
}

func (u untilError) Next(updated bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	return u.base.Next(updated, err)
}
