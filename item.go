package rowpipe

import (
	"fmt"

	"github.com/samber/lo"
)

// WorkItem is one element of a unit in flight. Unit and Item never change along the chain, stages only replace the
// Payload.
type WorkItem[P any] struct {
	Payload P
	Item    int
	Unit    int
}

// With returns a copy of the item carrying payload.
func (w WorkItem[P]) With(payload P) WorkItem[P] {
	return WorkItem[P]{Payload: payload, Item: w.Item, Unit: w.Unit}
}

// Unit is an ordered, non-empty list of payloads processed and reassembled together (the rows of an image).
type Unit[P any] []P

// SizeFunc returns the size of a payload (a row width). Every payload of a unit must have the same size.
type SizeFunc[P any] func(P) int

// ValidateUnits rejects empty units and, if size is not nil, units whose payloads do not share the same size.
func ValidateUnits[P any](units []Unit[P], size SizeFunc[P]) error {
	for u, unit := range units {
		if len(unit) == 0 {
			return fmt.Errorf("%w: unit %d has no items", ErrInvalidUnit, u)
		}
		if size == nil {
			continue
		}
		want := size(unit[0])
		if bad, i, found := lo.FindIndexOf([]P(unit), func(p P) bool { return size(p) != want }); found {
			return fmt.Errorf("%w: unit %d item %d has size %d, item 0 has size %d", ErrInvalidUnit, u, i, size(bad), want)
		}
	}
	return nil
}
