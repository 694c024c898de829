package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fogfactory/rowpipe/benchmark"
)

type benchOptions struct {
	stages     []string
	runs       int
	workers    int
	capacity   int
	sorters    int
	slowFactor int
	profile    bool
}

func newBenchCommand(ctx *commandContext) *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench FILE...",
		Short: "Compare the pipeline with a serial run on the given PPM images",
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
			if !flags.Changed("runs") {
				opts.runs = cfg.Bench.Runs
			}
			if !flags.Changed("slow-factor") {
				opts.slowFactor = cfg.Bench.SlowFactor
			}

			images, err := loadImages(cmd.Context(), args)
			if err != nil {
				return err
			}
			var profilePath string
			if opts.profile {
				profilePath = profileName(cfg.Bench.ProfileDir, opts)
			}

			report, err := benchmark.Compare(cmd.Context(), images, stageIDs(opts.stages), benchmark.Options{
				Runs:        opts.runs,
				Workers:     opts.workers,
				Capacity:    opts.capacity,
				Sorters:     opts.sorters,
				SlowFactor:  opts.slowFactor,
				ProfilePath: profilePath,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.stages, "stage", "s", nil, "Stage to apply, in order (repeatable)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Workers per stage")
	cmd.Flags().IntVar(&opts.capacity, "capacity", 0, "Capacity of every queue")
	cmd.Flags().IntVar(&opts.sorters, "sorters", 0, "Sorters sharing the last queue")
	cmd.Flags().IntVarP(&opts.runs, "runs", "n", 0, "Timed runs per mode")
	cmd.Flags().IntVar(&opts.slowFactor, "slow-factor", 0, "Times every transform is repeated")
	cmd.Flags().BoolVar(&opts.profile, "profile", false, "Write a CPU profile of the pipeline runs")
	return cmd
}

// profileName is rowpipe_{date}_w{workers}_c{capacity}_x{slowFactor}.prof in dir, the current directory if empty.
func profileName(dir string, opts benchOptions) string {
	dir = lo.CoalesceOrEmpty(dir, ".")
	date := strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-")
	return filepath.Join(dir, fmt.Sprintf("rowpipe_%s_w%d_c%d_x%d.prof", date, opts.workers, opts.capacity, opts.slowFactor))
}

func printReport(cmd *cobra.Command, report benchmark.Report) {
	row := func(mode string, s benchmark.Stats) []string {
		return []string{mode, s.Mean.String(), s.StdDev.String(), s.Min.String(), s.Max.String()}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d images, %s rows, %s pixels, %d runs per mode\n",
		report.Images, humanize.Comma(int64(report.Rows)), humanize.Comma(int64(report.Pixels)), report.Runs)
	fmt.Fprintln(out, renderTable(
		[]string{"Mode", "Mean", "StdDev", "Min", "Max"},
		[][]string{row("serial", report.Serial), row("pipeline", report.Pipeline)},
		2, 3, 4, 5))
	fmt.Fprintf(out, "Speedup: %.2fx\n", report.Speedup)
	if report.ProfilePath != "" {
		fmt.Fprintf(out, "Profile: %s\n", report.ProfilePath)
	}
}
