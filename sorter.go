package rowpipe

import (
	"context"
	"errors"
	"fmt"
)

// Sort routes every item of in to outs[item.Unit] until in is closed and drained. Several sorters may share the same
// in. It returns the number of routed items.
func Sort[P any](ctx context.Context, in *Queue[WorkItem[P]], outs []*Queue[WorkItem[P]]) (int, error) {
	routed := 0
	for {
		item, ok, err := in.Remove(ctx)
		if err != nil {
			return routed, err
		}
		if !ok {
			return routed, nil
		}

		if item.Unit < 0 || item.Unit >= len(outs) {
			return routed, invariant(ComponentSorter, "", -1, item.Unit, item.Item,
				fmt.Errorf("no queue for unit %d (%d units)", item.Unit, len(outs)))
		}
		err = outs[item.Unit].Add(ctx, item)
		if errors.Is(err, ErrQueueClosed) {
			return routed, invariant(ComponentSorter, "", -1, item.Unit, item.Item, err)
		}
		if err != nil {
			return routed, err
		}
		routed++
	}
}
