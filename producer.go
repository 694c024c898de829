package rowpipe

import (
	"context"
	"errors"
)

// Produce pushes one WorkItem per payload of unit into out, in increasing item order. It never closes out: out is
// shared by the producers of every unit and only the orchestrator knows when they are all done.
func Produce[P any](ctx context.Context, unitIndex int, unit Unit[P], out *Queue[WorkItem[P]]) error {
	for i, payload := range unit {
		err := out.Add(ctx, WorkItem[P]{Payload: payload, Item: i, Unit: unitIndex})
		if errors.Is(err, ErrQueueClosed) {
			return invariant(ComponentProducer, "", -1, unitIndex, i, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
