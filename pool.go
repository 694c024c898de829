package rowpipe

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
)

// Pools define a slice of goroutine pools, one per pipeline tier (producers, each stage, sorters, assemblers).
type Pools struct {
	pools []*ants.Pool
}

// Release releases all the pools inside the pools.
func (p *Pools) Release() {
	if p == nil {
		return
	}
	for _, p := range p.pools {
		if p == nil {
			continue
		}
		p.Release()
	}
}

// NewPoolsWithOptions builds one pool per size in parameters. Every size must be at least 1: a tier always runs in
// its own goroutines, since its members block on queues fed by the other tiers.
func NewPoolsWithOptions(poolSizes []int, opts ...ants.Option) (*Pools, error) {
	var err error
	result := &Pools{
		pools: lo.FilterMap(poolSizes, func(size, tier int) (pool *ants.Pool, ok bool) {
			if err != nil {
				return nil, false
			}
			if size < 1 {
				err = fmt.Errorf("%w: pool %d has size %d", ErrInvalidConfig, tier, size)
				return nil, false
			}
			pool, err = ants.NewPool(size, opts...)
			return pool, err == nil
		}),
	}
	if err != nil {
		result.Release() // release eventually created pools
		return nil, err
	}
	return result, nil
}

// NewPools builds pools with the sizes in parameters.
func NewPools(poolSizes ...int) (*Pools, error) {
	return NewPoolsWithOptions(poolSizes)
}

// Len returns the number of tiers.
func (p *Pools) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pools)
}

// group returns a joinable set of tasks running in the pool of the given tier.
func (p *Pools) group(tier int) *group {
	return &group{pool: p.pools[tier]}
}

// group tracks the tasks submitted to one pool so the orchestrator can join a whole tier.
type group struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

// Go submits f. A task that could not be submitted is not counted by Wait.
func (g *group) Go(f func()) error {
	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		f()
	})
	if err != nil {
		g.wg.Done()
		return err
	}
	return nil
}

// Wait blocks until every submitted task returned.
func (g *group) Wait() {
	g.wg.Wait()
}
