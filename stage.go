package rowpipe

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// StageID names a transform in a Registry (FLIP_HORIZONTALLY, GRAYSCALE...).
type StageID string

// Transform defines a basic function which builds a new payload from a payload. It must not mutate its input.
type Transform[P any] func(P) P

// Stage is a resolved StageID.
type Stage[P any] struct {
	ID        StageID
	Transform Transform[P]
}

// Registry maps stage identifiers to their transform. A pipeline chain is configured as a list of identifiers
// resolved against a registry.
type Registry[P any] map[StageID]Transform[P]

// Resolve returns the stages named by ids, in order. Every id must be registered with a non nil transform.
func (r Registry[P]) Resolve(ids ...StageID) ([]Stage[P], error) {
	stages := make([]Stage[P], 0, len(ids))
	for _, id := range ids {
		transform, ok := r[id]
		if !ok || transform == nil {
			return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownStage, id, r.IDs())
		}
		stages = append(stages, Stage[P]{ID: id, Transform: transform})
	}
	return stages, nil
}

// IDs returns the registered identifiers, sorted.
func (r Registry[P]) IDs() []StageID {
	ids := lo.Keys(r)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Link merges several transforms into one, applied in order.
func Link[P any](transforms ...Transform[P]) Transform[P] {
	return func(p P) P {
		return lo.Reduce(transforms, func(val P, t Transform[P], _ int) P { return t(val) }, p)
	}
}

// Transforms returns the transform of each stage.
func Transforms[P any](stages []Stage[P]) []Transform[P] {
	return lo.Map(stages, func(s Stage[P], _ int) Transform[P] { return s.Transform })
}

// RunSerial applies stages to every payload of every unit in the calling goroutine. It is the reference the
// concurrent pipeline must agree with.
func RunSerial[P any](units []Unit[P], stages []Stage[P]) []Unit[P] {
	chain := Link(Transforms(stages)...)
	return lo.Map(units, func(unit Unit[P], _ int) Unit[P] {
		return lo.Map([]P(unit), func(p P, _ int) P { return chain(p) })
	})
}
