package rowpipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Assemble collects the size items of unit unitIndex from in, each into the slot given by its index, and builds the
// unit once in is closed and drained.
//
// The close signal ends the assembly, not the slot count: a slot still empty at that point means an item was lost,
// and a slot written twice means one was duplicated. Both are InvariantError, no partial unit is ever returned.
func Assemble[P any](ctx context.Context, unitIndex, size int, in *Queue[WorkItem[P]]) (Unit[P], error) {
	slots := make([]P, size)
	filled := make([]bool, size)
	for {
		item, ok, err := in.Remove(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch {
		case item.Unit != unitIndex:
			return nil, invariant(ComponentAssembler, "", -1, unitIndex, item.Item,
				fmt.Errorf("item belongs to unit %d", item.Unit))
		case item.Item < 0 || item.Item >= size:
			return nil, invariant(ComponentAssembler, "", -1, unitIndex, item.Item,
				fmt.Errorf("item index out of range [0..%d]", size-1))
		case filled[item.Item]:
			return nil, invariant(ComponentAssembler, "", -1, unitIndex, item.Item,
				errors.New("slot written twice"))
		}
		slots[item.Item] = item.Payload
		filled[item.Item] = true
	}

	missing := lo.FilterMap(filled, func(ok bool, i int) (int, bool) { return i, !ok })
	if len(missing) > 0 {
		return nil, invariant(ComponentAssembler, "", -1, unitIndex, missing[0],
			fmt.Errorf("%d of %d items missing at close: %v", len(missing), size, missing))
	}
	return slots, nil
}
