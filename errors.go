package rowpipe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
	ErrInvalidUnit   = errors.New("invalid unit")
	ErrUnknownStage  = errors.New("unknown stage")
	ErrQueueClosed   = errors.New("queue closed for writes")
	ErrInvariant     = errors.New("pipeline invariant violated")
)

// Component names used in InvariantError and in logs.
const (
	ComponentProducer  = "producer"
	ComponentWorker    = "worker"
	ComponentSorter    = "sorter"
	ComponentAssembler = "assembler"
)

// InvariantError reports a broken pipeline: a write rejected by a queue that should still be open, a slot written
// twice, a unit assembled with missing items, a transform that panicked. It is fatal and never retried.
//
// Fields that do not apply are set to -1 (or empty for Stage).
type InvariantError struct {
	Component string
	Stage     StageID
	Worker    int
	Unit      int
	Item      int
	Err       error
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvariant.Error())
	b.WriteString(": ")
	b.WriteString(e.Component)
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if e.Worker >= 0 {
		fmt.Fprintf(&b, " worker=%d", e.Worker)
	}
	if e.Unit >= 0 {
		fmt.Fprintf(&b, " unit=%d", e.Unit)
	}
	if e.Item >= 0 {
		fmt.Fprintf(&b, " item=%d", e.Item)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap allows errors.Is to match both ErrInvariant and the underlying cause.
func (e *InvariantError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvariant}
	}
	return []error{ErrInvariant, e.Err}
}

func invariant(component string, stage StageID, worker, unit, item int, err error) *InvariantError {
	return &InvariantError{
		Component: component,
		Stage:     stage,
		Worker:    worker,
		Unit:      unit,
		Item:      item,
		Err:       err,
	}
}
