package rowpipe

import (
	"context"
	"errors"
	"fmt"
)

// Work runs one worker of stage: it removes items from in, transforms them and adds them to out until in is closed
// and drained. It returns the number of items it processed.
//
// out must outlive the worker: a write rejected by a closed out is an InvariantError. So is a panicking transform.
func Work[P any](ctx context.Context, stage Stage[P], worker int, in, out *Queue[WorkItem[P]]) (int, error) {
	processed := 0
	for {
		item, ok, err := in.Remove(ctx)
		if err != nil {
			return processed, err
		}
		if !ok {
			return processed, nil
		}

		next, err := apply(stage.Transform, item)
		if err != nil {
			return processed, invariant(ComponentWorker, stage.ID, worker, item.Unit, item.Item, err)
		}

		err = out.Add(ctx, next)
		if errors.Is(err, ErrQueueClosed) {
			return processed, invariant(ComponentWorker, stage.ID, worker, item.Unit, item.Item, err)
		}
		if err != nil {
			return processed, err
		}
		processed++
	}
}

func apply[P any](transform Transform[P], item WorkItem[P]) (next WorkItem[P], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return item.With(transform(item.Payload)), nil
}
