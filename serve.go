package main

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/catalog"
	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/identity"
	"github.com/lexandro/contentsieve/pipeline"
	"github.com/lexandro/contentsieve/report"
	"github.com/lexandro/contentsieve/server"
	"github.com/lexandro/contentsieve/tools"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	flags := &organizeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server over organize and the catalog",
		Long: `Serves the sieve_organize, sieve_status, sieve_search, sieve_files and
sieve_read tools on stdin/stdout. Organize flags configure the runs started
by sieve_organize; with --watch the server also re-runs organize when the
roots change. Logs never go to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := setup(cmd, opts, func(cfg *config.Config) {
				flags.apply(cmd.Flags(), cfg)
			})
			if err != nil {
				return err
			}
			defer cleanup()
			return runServe(cmd.Context(), cfg, logger)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	startTime := time.Now()
	if cfg.Watch {
		cfg.SeedFromOutput = true
	}

	cat, err := catalog.New(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer cat.Close()

	cache, err := identity.NewHashCache(cfg.HashCacheSize)
	if err != nil {
		return err
	}
	sinks := pipeline.Sinks(cfg, logger)
	defer func() {
		if closeErr := report.CloseSinks(sinks); closeErr != nil {
			logger.Warn("closing report sinks", zap.Error(closeErr))
		}
	}()

	// An unusable organize configuration does not stop the server; the
	// catalog tools still work and sieve_organize reports the error.
	org, orgErr := pipeline.NewOrganizer(cfg, pipeline.Options{
		Catalog:  cat,
		Sinks:    sinks,
		Cache:    cache,
		Progress: progressLogger(logger),
	}, logger)
	if orgErr != nil {
		logger.Warn("organize unavailable", zap.Error(orgErr))
	}

	state := &tools.RunState{}
	organize := func(ctx context.Context) (*pipeline.Result, error) {
		if orgErr != nil {
			return nil, fmt.Errorf("organize unavailable: %w", orgErr)
		}
		return org.Run(ctx), nil
	}

	mcpServer := server.Setup(version, server.Handlers{
		Organize: &tools.OrganizeHandler{Organize: organize, Catalog: cat, State: state, Logger: logger},
		Status: &tools.StatusHandler{
			Catalog:   cat,
			State:     state,
			StartTime: startTime,
			OutputDir: cfg.OutputDir,
			Logger:    logger,
		},
		Search: &tools.SearchHandler{Catalog: cat, Logger: logger},
		Files:  &tools.FilesHandler{Catalog: cat, Logger: logger},
		Read:   &tools.ReadHandler{Catalog: cat, Logger: logger},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchDone := make(chan struct{})
	if cfg.Watch && org != nil {
		go func() {
			defer close(watchDone)
			err := watchOrganize(ctx, org, cfg, logger, func(ctx context.Context) {
				// A tool call organizing right now already sees these changes.
				if !state.Begin() {
					logger.Info("organize already running, skipping change batch")
					return
				}
				state.End(org.Run(ctx))
			})
			if err != nil {
				logger.Warn("watch failed, continuing without live updates", zap.Error(err))
			}
		}()
	} else {
		close(watchDone)
	}

	logger.Info("MCP server starting on stdio",
		zap.String("out", cfg.OutputDir),
		zap.Strings("roots", cfg.Roots),
		zap.Bool("watch", cfg.Watch),
	)
	err = mcpServer.Run(ctx, &mcp.StdioTransport{})
	stopped := ctx.Err() != nil
	cancel()
	<-watchDone
	if err != nil && !stopped {
		logger.Error("MCP server error", zap.Error(err))
		return err
	}
	return nil
}
