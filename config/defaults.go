package config

const (
	defaultWorkersPerStage = 4
	defaultQueueCapacity   = 50
	defaultSorters         = 1
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultBenchRuns       = 20
	defaultSlowFactor      = 2500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			Stages:          []string{"FLIP_HORIZONTALLY", "GRAYSCALE"},
			WorkersPerStage: defaultWorkersPerStage,
			QueueCapacity:   defaultQueueCapacity,
			Sorters:         defaultSorters,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Bench: Bench{
			Runs:       defaultBenchRuns,
			SlowFactor: defaultSlowFactor,
		},
	}
}
