package rowpipe_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fogfactory/rowpipe"
	"github.com/maxatome/go-testdeep/td"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
)

func InitPool(t testing.TB, poolSizes ...int) *rowpipe.Pools {
	return InitPoolWithOptions(t, poolSizes)
}

func InitPoolWithOptions(t testing.TB, poolSizes []int, opts ...ants.Option) *rowpipe.Pools {
	pools, err := rowpipe.NewPoolsWithOptions(poolSizes, opts...)
	td.Require(t).CmpNoError(err)
	t.Cleanup(pools.Release)
	return pools
}

func TestPool(t *testing.T) {

	t.Run("error_zero_size", func(t *testing.T) {
		// Act
		pools, err := rowpipe.NewPools(2, 0, 1)

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrInvalidConfig)
		td.CmpContains(t, err, "pool 1 has size 0")
		td.CmpNil(t, pools)
	})

	t.Run("empty_pools", func(t *testing.T) {
		// Arrange
		pool := InitPool(t)

		// Assert
		td.CmpLen(t, pool.Pools(), 0, "Shouldn't have underlying pool")
		td.Cmp(t, pool.Len(), 0)
	})

	t.Run("nil_pools_release", func(t *testing.T) {
		var pool *rowpipe.Pools
		pool.Release()
		td.Cmp(t, pool.Len(), 0)
	})

	t.Run("pool_sizes", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 1, 4, 2)

		// Assert
		td.Cmp(t, lo.Map(pool.Pools(), func(p *ants.Pool, _ int) int { return p.Cap() }), []int{1, 4, 2})
	})

	t.Run("tier_runs_concurrently", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 2)
		topeLa := make(chan bool)
		deadlock := false
		meet := func() {
			// Arbitrary reconciliation to check that both tasks are run in separate routine
			select {
			case topeLa <- true:
			case <-topeLa:
			case <-time.After(50 * time.Millisecond):
				deadlock = true
			}
		}

		// Act
		err := pool.RunTier(0, meet, meet)

		// Assert
		td.CmpNoError(t, err)
		td.CmpFalse(t, deadlock, "Deadlock detected. Tasks are not runned in several goroutines")
	})

	t.Run("tier_waits_for_all_tasks", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 1, 3)
		var count atomic.Int32
		task := func() {
			time.Sleep(5 * time.Millisecond)
			count.Add(1)
		}

		// Act
		err := pool.RunTier(1, lo.Times(6, func(int) func() { return task })...)

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, count.Load(), int32(6))
	})

	t.Run("released_pool_rejects_tasks", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 1)
		pool.Release()

		// Act
		err := pool.RunTier(0, func() {})

		// Assert
		td.CmpErrorIs(t, err, ants.ErrPoolClosed)
	})
}
