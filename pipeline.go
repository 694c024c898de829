package rowpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Pipeline runs batches of units through chains of stages resolved from its registry. A Pipeline holds no state
// between runs and may run several batches concurrently.
type Pipeline[P any] struct {
	registry Registry[P]
	cfg      config[P]
}

// New creates a Pipeline resolving stage identifiers against registry.
func New[P any](registry Registry[P], opts ...Option[P]) *Pipeline[P] {
	cfg := defaultConfig[P]()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == nil {
		cfg.runID = uuid.NewString
	}
	return &Pipeline[P]{registry: registry, cfg: cfg}
}

// RunPipeline is a shortcut for New(registry, opts...).Run(...).
func RunPipeline[P any](ctx context.Context, registry Registry[P], units []Unit[P], stageIDs []StageID,
	workersPerStage, queueCapacity int, opts ...Option[P]) ([]Unit[P], error) {
	return New(registry, opts...).Run(ctx, units, stageIDs, workersPerStage, queueCapacity)
}

// Run pushes every unit through the stages named by stageIDs, with workersPerStage goroutines per stage and queues
// of queueCapacity items, and returns the transformed units indexed like units.
//
// Configuration errors (ErrInvalidConfig, ErrUnknownStage, ErrInvalidUnit) are returned before anything starts. An
// InvariantError aborts the whole run and is returned once every goroutine has stopped. If ctx is cancelled, Run
// returns ctx.Err() along with the units which were completely assembled, the others being nil.
func (p *Pipeline[P]) Run(ctx context.Context, units []Unit[P], stageIDs []StageID,
	workersPerStage, queueCapacity int) ([]Unit[P], error) {
	stages, err := p.registry.Resolve(stageIDs...)
	if err != nil {
		return nil, err
	}
	if workersPerStage < 1 {
		return nil, fmt.Errorf("%w: workers per stage must be at least 1, got %d", ErrInvalidConfig, workersPerStage)
	}
	if p.cfg.sorters < 1 {
		return nil, fmt.Errorf("%w: sorters must be at least 1, got %d", ErrInvalidConfig, p.cfg.sorters)
	}
	if err := ValidateUnits(units, p.cfg.size); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return []Unit[P]{}, nil
	}

	r, err := p.newRun(ctx, units, stages, workersPerStage, queueCapacity)
	if err != nil {
		return nil, err
	}
	defer r.release()
	return r.execute()
}

// run is the state of one Run call: queues, pools and the first fatal error.
type run[P any] struct {
	ctx    context.Context
	parent context.Context
	cancel context.CancelCauseFunc
	logger *slog.Logger

	units   []Unit[P]
	stages  []Stage[P]
	workers int
	sorters int

	pools   *Pools
	queues  []*Queue[WorkItem[P]] // queues[i] feeds stages[i], the last one feeds the sorters
	perUnit []*Queue[WorkItem[P]]
	results []Unit[P]

	mu    sync.Mutex
	fatal error
}

func (p *Pipeline[P]) newRun(ctx context.Context, units []Unit[P], stages []Stage[P], workers, capacity int) (*run[P], error) {
	queues, err := newQueues[P](len(stages)+1, capacity)
	if err != nil {
		return nil, err
	}
	perUnit, err := newQueues[P](len(units), capacity)
	if err != nil {
		return nil, err
	}

	// tiers: producers, one per stage, sorters, assemblers
	sizes := make([]int, 0, len(stages)+3)
	sizes = append(sizes, len(units))
	sizes = append(sizes, lo.Times(len(stages), func(int) int { return workers })...)
	sizes = append(sizes, p.cfg.sorters, len(units))
	pools, err := NewPoolsWithOptions(sizes, p.cfg.poolOpts...)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	return &run[P]{
		ctx:     runCtx,
		parent:  ctx,
		cancel:  cancel,
		logger:  p.cfg.logger.With(slog.String("run_id", p.cfg.runID())),
		units:   units,
		stages:  stages,
		workers: workers,
		sorters: p.cfg.sorters,
		pools:   pools,
		queues:  queues,
		perUnit: perUnit,
		results: make([]Unit[P], len(units)),
	}, nil
}

func newQueues[P any](n, capacity int) ([]*Queue[WorkItem[P]], error) {
	queues := make([]*Queue[WorkItem[P]], n)
	for i := range queues {
		q, err := NewQueue[WorkItem[P]](capacity)
		if err != nil {
			return nil, err
		}
		queues[i] = q
	}
	return queues, nil
}

func (r *run[P]) release() {
	r.cancel(nil)
	r.pools.Release()
}

// execute starts every component, then closes each queue once all of its writers have returned, in chain order.
func (r *run[P]) execute() ([]Unit[P], error) {
	start := time.Now()
	r.logger.Info("pipeline started",
		slog.Int("units", len(r.units)),
		slog.Any("stages", lo.Map(r.stages, func(s Stage[P], _ int) StageID { return s.ID })),
		slog.Int("workers_per_stage", r.workers),
		slog.Int("queue_capacity", r.queues[0].Cap()),
		slog.Int("sorters", r.sorters))

	producers := r.pools.group(0)
	for u, unit := range r.units {
		r.submit(producers, func() { r.produce(u, unit) })
	}

	workers := make([]*group, len(r.stages))
	for i, stage := range r.stages {
		workers[i] = r.pools.group(1 + i)
		for w := 0; w < r.workers; w++ {
			id := i*r.workers + w
			r.submit(workers[i], func() { r.work(stage, id, r.queues[i], r.queues[i+1]) })
		}
	}

	sorters := r.pools.group(1 + len(r.stages))
	for s := 0; s < r.sorters; s++ {
		r.submit(sorters, func() { r.sort(s) })
	}

	assemblers := r.pools.group(2 + len(r.stages))
	for u, unit := range r.units {
		r.submit(assemblers, func() { r.assemble(u, len(unit)) })
	}

	producers.Wait()
	r.queues[0].Close()
	for i := range r.stages {
		workers[i].Wait()
		r.queues[i+1].Close()
	}
	sorters.Wait()
	for _, q := range r.perUnit {
		q.Close()
	}
	assemblers.Wait()

	if err := r.fatalErr(); err != nil {
		r.logger.Error("pipeline aborted", slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
		return nil, err
	}
	if err := r.parent.Err(); err != nil {
		done := lo.CountBy(r.results, func(u Unit[P]) bool { return u != nil })
		r.logger.Warn("pipeline terminated early",
			slog.Duration("elapsed", time.Since(start)),
			slog.Int("assembled_units", done),
			slog.Int("dropped_items", r.drop()),
			slog.Any("error", err))
		return r.results, err
	}
	r.logger.Info("pipeline finished", slog.Duration("elapsed", time.Since(start)))
	return r.results, nil
}

// drop empties every queue once all components returned, and counts the items left in flight.
func (r *run[P]) drop() int {
	dropped := 0
	for _, q := range lo.Flatten([][]*Queue[WorkItem[P]]{r.queues, r.perUnit}) {
		for {
			if _, ok := q.Poll(); !ok {
				break
			}
			dropped++
		}
	}
	return dropped
}

func (r *run[P]) submit(g *group, f func()) {
	if err := g.Go(f); err != nil {
		r.fail(fmt.Errorf("submit task: %w", err))
	}
}

func (r *run[P]) produce(unit int, payloads Unit[P]) {
	logger := r.logger.With(slog.String("component", ComponentProducer), slog.Int("unit", unit))
	logger.Debug("starting")
	err := Produce(r.ctx, unit, payloads, r.queues[0])
	r.done(logger, err, slog.Int("items", len(payloads)))
}

func (r *run[P]) work(stage Stage[P], id int, in, out *Queue[WorkItem[P]]) {
	logger := r.logger.With(slog.String("component", ComponentWorker), slog.String("stage", string(stage.ID)), slog.Int("worker", id))
	logger.Debug("starting")
	processed, err := Work(r.ctx, stage, id, in, out)
	r.done(logger, err, slog.Int("items", processed))
}

func (r *run[P]) sort(id int) {
	logger := r.logger.With(slog.String("component", ComponentSorter), slog.Int("sorter", id))
	logger.Debug("starting")
	routed, err := Sort(r.ctx, r.queues[len(r.queues)-1], r.perUnit)
	r.done(logger, err, slog.Int("items", routed))
}

func (r *run[P]) assemble(unit, size int) {
	logger := r.logger.With(slog.String("component", ComponentAssembler), slog.Int("unit", unit))
	unitResult, err := Assemble(r.ctx, unit, size, r.perUnit[unit])
	if err == nil {
		r.results[unit] = unitResult
	}
	r.done(logger, err, slog.Int("items", size))
}

// done logs the end of a component. Cancellation is not an error, anything else aborts the run.
func (r *run[P]) done(logger *slog.Logger, err error, attrs ...any) {
	switch {
	case err == nil:
		logger.Debug("finished", attrs...)
	case r.ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		logger.Debug("early termination", slog.Any("cause", context.Cause(r.ctx)))
	default:
		logger.Error("component failed", slog.Any("error", err))
		r.fail(err)
	}
}

// fail records the first fatal error and cancels every other component.
func (r *run[P]) fail(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
	r.cancel(err)
}

func (r *run[P]) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}
