package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"episode-crawler/pkg/config"
	"episode-crawler/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug logging for all commands.
	debug bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "episodecrawl",
		Short:         "Discover podcast episodes and store them",
		Long:          `Crawls the podcast listing page for episodes at or above a starting episode number, enriches them from their detail pages and upserts them into the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newCrawlCommand())
	root.AddCommand(newReplicateCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "episodecrawl version %s\n", version)
		},
	})

	return root
}

// loadConfig reads the configuration and builds the logger for a command.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
