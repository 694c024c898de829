// Package benchmark times the pipeline against the single goroutine reference run on the same images.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/fogfactory/rowpipe"
	"github.com/fogfactory/rowpipe/ppm"
	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrMismatch is returned when the pipeline output differs from the serial output.
var ErrMismatch = errors.New("pipeline output differs from serial output")

// Options configures Compare.
type Options struct {
	Runs     int // timed runs per mode
	Workers  int // workers per stage
	Capacity int // queue capacity
	Sorters  int
	// SlowFactor repeats every transform to simulate CPU heavy stages. 0 means 1.
	SlowFactor int
	// ProfilePath, when set, receives a CPU profile of the pipeline runs. Read it with
	// `go tool pprof -http=:8080 $file`.
	ProfilePath string
	Logger      *slog.Logger
}

// Stats summarizes the durations of one mode.
type Stats struct {
	Mean   time.Duration
	StdDev time.Duration
	Min    time.Duration
	Max    time.Duration
}

// Report is the result of Compare.
type Report struct {
	Images   int
	Rows     int
	Pixels   int
	Stages   []rowpipe.StageID
	Runs     int
	Serial   Stats
	Pipeline Stats
	// Speedup is the serial mean divided by the pipeline mean.
	Speedup     float64
	ProfilePath string
}

// Repeat returns a transform computing f n times on its input and returning the last result.
func Repeat[P any](f rowpipe.Transform[P], n int) rowpipe.Transform[P] {
	if n <= 1 {
		return f
	}
	return func(p P) P {
		var out P
		for i := 0; i < n; i++ {
			out = f(p)
		}
		return out
	}
}

// Compare runs the stages named by stageIDs on images, serially then through the pipeline, opts.Runs times each,
// and checks that every pipeline run produced exactly the serial output.
func Compare(ctx context.Context, images []*ppm.Image, stageIDs []rowpipe.StageID, opts Options) (Report, error) {
	opts, err := normalize(opts)
	if err != nil {
		return Report{}, err
	}
	if len(images) == 0 {
		return Report{}, fmt.Errorf("%w: no image to process", rowpipe.ErrInvalidConfig)
	}

	registry := rowpipe.Registry[ppm.Row](lo.MapValues(ppm.Stages(), func(f rowpipe.Transform[ppm.Row], _ rowpipe.StageID) rowpipe.Transform[ppm.Row] {
		return Repeat(f, opts.SlowFactor)
	}))
	stages, err := registry.Resolve(stageIDs...)
	if err != nil {
		return Report{}, err
	}
	units := ppm.Units(images)

	report := Report{
		Images: len(images),
		Rows:   lo.SumBy(images, func(m *ppm.Image) int { return m.Height() }),
		Pixels: lo.SumBy(images, func(m *ppm.Image) int { return m.Width() * m.Height() }),
		Stages: stageIDs,
		Runs:   opts.Runs,
	}

	var expected []*ppm.Image
	serial := make([]float64, opts.Runs)
	for i := range serial {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		start := time.Now()
		out := rowpipe.RunSerial(units, stages)
		serial[i] = float64(time.Since(start))
		opts.Logger.Debug("serial run", slog.Int("run", i), slog.Duration("elapsed", time.Duration(serial[i])))
		if expected == nil {
			if expected, err = ppm.FromUnits(out); err != nil {
				return Report{}, err
			}
		}
	}

	pipeline := rowpipe.New(registry,
		rowpipe.WithLogger[ppm.Row](opts.Logger),
		rowpipe.WithSorters[ppm.Row](opts.Sorters),
		rowpipe.WithItemSize(ppm.Width))
	parallel, err := profile(opts.ProfilePath, func() ([]float64, error) {
		durations := make([]float64, opts.Runs)
		for i := range durations {
			start := time.Now()
			out, err := pipeline.Run(ctx, units, stageIDs, opts.Workers, opts.Capacity)
			if err != nil {
				return nil, err
			}
			durations[i] = float64(time.Since(start))
			opts.Logger.Debug("pipeline run", slog.Int("run", i), slog.Duration("elapsed", time.Duration(durations[i])))
			if err := check(expected, out); err != nil {
				return nil, fmt.Errorf("run %d: %w", i, err)
			}
		}
		return durations, nil
	})
	if err != nil {
		return Report{}, err
	}

	report.Serial = summarize(serial)
	report.Pipeline = summarize(parallel)
	if report.Pipeline.Mean > 0 {
		report.Speedup = float64(report.Serial.Mean) / float64(report.Pipeline.Mean)
	}
	report.ProfilePath = opts.ProfilePath
	opts.Logger.Info("benchmark finished",
		slog.Duration("serial_mean", report.Serial.Mean),
		slog.Duration("pipeline_mean", report.Pipeline.Mean),
		slog.Float64("speedup", report.Speedup))
	return report, nil
}

func normalize(opts Options) (Options, error) {
	if opts.Runs < 1 || opts.Workers < 1 || opts.Capacity < 1 {
		return opts, fmt.Errorf("%w: runs, workers and capacity must be at least 1, got %d, %d and %d",
			rowpipe.ErrInvalidConfig, opts.Runs, opts.Workers, opts.Capacity)
	}
	if opts.SlowFactor < 0 {
		return opts, fmt.Errorf("%w: slow factor must not be negative, got %d", rowpipe.ErrInvalidConfig, opts.SlowFactor)
	}
	opts.SlowFactor = max(opts.SlowFactor, 1)
	opts.Sorters = max(opts.Sorters, 1)
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return opts, nil
}

// profile runs f, under a CPU profile written to path when path is not empty.
func profile(path string, f func() ([]float64, error)) (durations []float64, err error) {
	if path == "" {
		return f()
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close profile: %w", cerr)
		}
	}()
	if err := pprof.StartCPUProfile(file); err != nil {
		return nil, fmt.Errorf("start profile: %w", err)
	}
	defer pprof.StopCPUProfile()
	return f()
}

func check(expected []*ppm.Image, units []rowpipe.Unit[ppm.Row]) error {
	got, err := ppm.FromUnits(units)
	if err != nil {
		return err
	}
	if len(got) != len(expected) {
		return fmt.Errorf("%w: %d images instead of %d", ErrMismatch, len(got), len(expected))
	}
	for i := range got {
		if !got[i].Equal(expected[i]) {
			return fmt.Errorf("%w: image %d (-serial +pipeline):\n%s", ErrMismatch, i, cmp.Diff(expected[i].Rows(), got[i].Rows()))
		}
	}
	return nil
}

func summarize(durations []float64) Stats {
	mean, std := stat.MeanStdDev(durations, nil)
	if len(durations) < 2 {
		std = 0
	}
	return Stats{
		Mean:   time.Duration(mean),
		StdDev: time.Duration(std),
		Min:    time.Duration(floats.Min(durations)),
		Max:    time.Duration(floats.Max(durations)),
	}
}
