package main

import (
	"github.com/spf13/cobra"
	"github.com/zhy3800/MovieWebsite/pkg/config"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "movie-svc",
		Short:         "Movie catalog service",
		Long:          "Movie catalog API: ratings, favorites, comments and popularity aggregates.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./config/config.yaml if present)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newRecomputeCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))

	return cmd
}

// load 读取配置并创建日志
func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.NewFileLoader(o.ConfigPath).Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Caller: !cfg.App.IsProduction(),
	}).WithFields(logger.String("service", cfg.App.Name))
	return cfg, log, nil
}
