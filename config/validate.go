package config

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json", "auto"}
)

// Validate ensures the configuration is usable. Stage names are checked against the stage registry by the
// pipeline itself.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateBench()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.WorkersPerStage < 1 {
		return fmt.Errorf("pipeline.workers_per_stage must be at least 1, got %d", c.Pipeline.WorkersPerStage)
	}
	if c.Pipeline.QueueCapacity < 1 {
		return fmt.Errorf("pipeline.queue_capacity must be at least 1, got %d", c.Pipeline.QueueCapacity)
	}
	if c.Pipeline.Sorters < 1 {
		return fmt.Errorf("pipeline.sorters must be at least 1, got %d", c.Pipeline.Sorters)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !lo.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level)
	}
	if !lo.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %v, got %q", logFormats, c.Logging.Format)
	}
	return nil
}

func (c *Config) validateBench() error {
	if c.Bench.Runs < 1 {
		return errors.New("bench.runs must be at least 1")
	}
	if c.Bench.SlowFactor < 1 {
		return errors.New("bench.slow_factor must be at least 1")
	}
	return nil
}
