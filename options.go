package rowpipe

import (
	"io"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// Option configures a Pipeline.
type Option[P any] func(*config[P])

type config[P any] struct {
	logger   *slog.Logger
	sorters  int
	size     SizeFunc[P]
	poolOpts []ants.Option
	runID    func() string
}

func defaultConfig[P any]() config[P] {
	return config[P]{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		sorters: 1,
	}
}

// WithLogger sets the logger receiving component lifecycle and failures. Logs are discarded by default.
func WithLogger[P any](logger *slog.Logger) Option[P] {
	return func(c *config[P]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSorters sets how many sorters share the final queue. Defaults to 1.
func WithSorters[P any](n int) Option[P] {
	return func(c *config[P]) {
		c.sorters = n
	}
}

// WithItemSize enables the check that every payload of a unit has the same size.
func WithItemSize[P any](size SizeFunc[P]) Option[P] {
	return func(c *config[P]) {
		c.size = size
	}
}

// WithPoolOptions adds options to all underlying ants pools.
func WithPoolOptions[P any](opts ...ants.Option) Option[P] {
	return func(c *config[P]) {
		c.poolOpts = append(c.poolOpts, opts...)
	}
}

// WithRunID overrides the generator of the run_id attached to every log of a run.
func WithRunID[P any](gen func() string) Option[P] {
	return func(c *config[P]) {
		c.runID = gen
	}
}
