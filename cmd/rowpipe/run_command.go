package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fogfactory/rowpipe"
	"github.com/fogfactory/rowpipe/ppm"
)

type runOptions struct {
	stages   []string
	workers  int
	capacity int
	sorters  int
	outDir   string
	compress bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Apply the stage chain to every row of the given PPM images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("stage") {
				opts.stages = cfg.Pipeline.Stages
			}
			if !flags.Changed("workers") {
				opts.workers = cfg.Pipeline.WorkersPerStage
			}
			if !flags.Changed("capacity") {
				opts.capacity = cfg.Pipeline.QueueCapacity
			}
			if !flags.Changed("sorters") {
				opts.sorters = cfg.Pipeline.Sorters
			}
			return runImages(cmd, logger, opts, args)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.stages, "stage", "s", nil, "Stage to apply, in order (repeatable)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Workers per stage")
	cmd.Flags().IntVar(&opts.capacity, "capacity", 0, "Capacity of every queue")
	cmd.Flags().IntVar(&opts.sorters, "sorters", 0, "Sorters sharing the last queue")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Output directory (defaults to each input's directory)")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "Write zstd compressed images ("+ppm.CompressedExt+")")
	return cmd
}

func runImages(cmd *cobra.Command, logger *slog.Logger, opts runOptions, paths []string) error {
	ids := stageIDs(opts.stages)
	runID := uuid.NewString()

	outputs := lo.Map(paths, func(path string, _ int) string { return outputPath(path, opts.outDir, ids, opts.compress) })
	if dups := lo.FindDuplicates(outputs); len(dups) > 0 {
		return fmt.Errorf("several inputs would be written to %s", strings.Join(dups, ", "))
	}

	images, err := loadImages(cmd.Context(), paths)
	if err != nil {
		return err
	}
	logger.Info("images loaded", slog.String("run_id", runID), slog.Int("images", len(images)))

	start := time.Now()
	pipeline := rowpipe.New(ppm.Stages(),
		rowpipe.WithLogger[ppm.Row](logger),
		rowpipe.WithSorters[ppm.Row](opts.sorters),
		rowpipe.WithItemSize(ppm.Width),
		rowpipe.WithRunID[ppm.Row](func() string { return runID }))
	units, err := pipeline.Run(cmd.Context(), ppm.Units(images), ids, opts.workers, opts.capacity)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	results, err := ppm.FromUnits(units)
	if err != nil {
		return err
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", opts.outDir, err)
		}
	}
	sizes, err := saveImages(cmd.Context(), outputs, results)
	if err != nil {
		return err
	}

	rows := make([][]string, len(paths))
	for i, path := range paths {
		m := results[i]
		rows[i] = []string{
			filepath.Base(path),
			fmt.Sprintf("%dx%d", m.Width(), m.Height()),
			humanize.Comma(int64(m.Width() * m.Height())),
			outputs[i],
			humanize.Bytes(uint64(sizes[i])),
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Image", "Size", "Pixels", "Output", "Written"},
		rows, 2, 3, 5))
	pixels := lo.SumBy(results, func(m *ppm.Image) int { return m.Width() * m.Height() })
	fmt.Fprintf(out, "Processed %d images (%s pixels) through %s in %s\n",
		len(results), humanize.Comma(int64(pixels)), stagesLabel(ids), elapsed.Round(time.Microsecond))
	return nil
}

// loadImages decodes every file concurrently, keeping the order of paths.
func loadImages(ctx context.Context, paths []string) ([]*ppm.Image, error) {
	images := make([]*ppm.Image, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := ppm.Load(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			images[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// saveImages encodes every image concurrently and returns the size of every written file.
func saveImages(ctx context.Context, paths []string, images []*ppm.Image) ([]int64, error) {
	sizes := make([]int64, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := ppm.Save(path, images[i]); err != nil {
				return fmt.Errorf("save %s: %w", path, err)
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			sizes[i] = info.Size()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}

// outputPath names the result of input after the applied stages: penguin.ppm becomes penguin-flip_horizontally.ppm.
func outputPath(input, outDir string, ids []rowpipe.StageID, compress bool) string {
	dir := filepath.Dir(input)
	if outDir != "" {
		dir = outDir
	}
	name := strings.TrimSuffix(filepath.Base(input), ppm.CompressedExt)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	suffix := "copy"
	if len(ids) > 0 {
		suffix = strings.ToLower(strings.Join(lo.Map(ids, func(id rowpipe.StageID, _ int) string { return string(id) }), "-"))
	}
	ext := ".ppm"
	if compress {
		ext += ppm.CompressedExt
	}
	return filepath.Join(dir, name+"-"+suffix+ext)
}

func stagesLabel(ids []rowpipe.StageID) string {
	if len(ids) == 0 {
		return "no stage"
	}
	return strings.Join(lo.Map(ids, func(id rowpipe.StageID, _ int) string { return string(id) }), " > ")
}
