package domain

import (
	"errors"
	"fmt"
)

type LoopType string

const (
	// start tasks whose parents have completed
	Dispatch LoopType = "dispatch"

	// observe workloads and report their status
	Monitor LoopType = "monitor"

	// close jobs whose tasks have all completed
	Finishing LoopType = "finishing"

	// launch jobs by cron triggers
	Trigger LoopType = "trigger"
)

func (lt LoopType) String() string {
	return string(lt)
}

func (lt LoopType) IsKnown() bool {
	switch lt {
	case Dispatch, Monitor, Finishing, Trigger:
		return true
	default:
		return false
	}
}

func AsLoopType(s string) (LoopType, error) {
	l := LoopType(s)
	if l.IsKnown() {
		return l, nil
	}
	return l, fmt.Errorf(`%w: "%s"`, ErrUnknownLoopType, s)
}

var ErrUnknownLoopType = errors.New("unknown loop type")
