package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/config"
)

var version = "0.1.0"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string
	logFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "contentsieve",
		Short: "Deduplicate, score and organize content from files or generators",
		Long: `contentsieve keeps one copy of each piece of content and only content that
clears a quality bar.

  organize   copy unique, good-enough files from source roots into category folders
  generate   fan prompts out to producers and keep unique, good-enough responses
  serve      expose organize and the catalog of accepted content over MCP stdio

Every run writes a report (report.json, summary.txt) even when interrupted.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringArrayVar(&opts.envFiles, "env-file", nil, ".env file to load (repeatable, default .env)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: json|console")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file path (default: stderr)")

	root.AddCommand(
		newOrganizeCommand(opts),
		newGenerateCommand(opts),
		newServeCommand(opts),
		newRegisterCommand(),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contentsieve %s\n", version)
		},
	}
}

// setup loads the layered configuration, applies the command's flag
// overrides and builds the logger. The returned cleanup flushes the logger.
func setup(cmd *cobra.Command, opts *globalOptions, override func(*config.Config)) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(opts.configPath, opts.envFiles...)
	if err != nil {
		return nil, nil, nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if override != nil {
		override(cfg)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, func() { _ = logger.Sync() }, nil
}
