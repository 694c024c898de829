package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fogfactory/rowpipe"
	"github.com/fogfactory/rowpipe/config"
	"github.com/fogfactory/rowpipe/logging"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, loaded, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = loaded
	})
	return c.config, c.configErr
}

// logger builds the command logger, flags taking precedence over the configuration file.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  lo.CoalesceOrEmpty(flagValue(c.logLevelFlag), cfg.Logging.Level),
		Format: lo.CoalesceOrEmpty(flagValue(c.logFormatFlag), cfg.Logging.Format),
		Writer: cmd.ErrOrStderr(),
	})
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func stageIDs(names []string) []rowpipe.StageID {
	return lo.FilterMap(names, func(name string, _ int) (rowpipe.StageID, bool) {
		name = strings.ToUpper(strings.TrimSpace(name))
		return rowpipe.StageID(name), name != ""
	})
}
